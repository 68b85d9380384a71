package smelt

// Wait blocks until every participant of the context has called Wait for
// the current round.
//
// Arrivals are reduced up the tree and the release is broadcast back
// down. Inside a cluster the arrival and the release are each one round
// of the cluster barrier: members never exchange barrier messages with
// their leader.
func (n *Node) Wait() error {
	if err := n.enter(); err != nil {
		return err
	}
	return n.exit("wait", n.wait())
}

func (n *Node) wait() error {
	if err := n.arrive(); err != nil {
		return err
	}
	return n.release()
}

// arrive gathers the subtree and reports it upward.
func (n *Node) arrive() error {
	for _, q := range n.children {
		if err := q.RecvNotification(); err != nil {
			return err
		}
	}
	if n.seat != nil {
		if err := n.seat.Arrive(); err != nil {
			return err
		}
	}
	if n.join != nil || n.root {
		return nil
	}
	return n.parent.Notify()
}

// release waits for the go from above and passes it on.
func (n *Node) release() error {
	if n.join != nil {
		if err := n.seat.Arrive(); err != nil {
			return err
		}
		return n.notifyKids()
	}
	if !n.root {
		if err := n.parent.RecvNotification(); err != nil {
			return err
		}
	}
	if err := n.notifyKids(); err != nil {
		return err
	}
	if n.seat != nil {
		return n.seat.Arrive()
	}
	return nil
}

func (n *Node) notifyKids() error {
	for _, q := range n.children {
		if err := q.Notify(); err != nil {
			return err
		}
	}
	return nil
}
