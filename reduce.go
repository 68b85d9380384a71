package smelt

// ReduceFunc folds src into dst. It runs on the receiving participant's
// goroutine and must not retain src.
type ReduceFunc func(dst, src *Message)

// Reduce combines the messages of the whole tree at the root. Each
// participant folds its ring children's results into msg in child order,
// then those of its cluster members in member order, and sends the
// outcome to its parent. On return msg at the root holds the combination
// of every participant's contribution; elsewhere it holds the subtree's
// partial result.
func (n *Node) Reduce(msg *Message, fn ReduceFunc) error {
	if err := n.enter(); err != nil {
		return err
	}
	return n.exit("reduce", n.reduce(msg, fn))
}

func (n *Node) reduce(msg *Message, fn ReduceFunc) error {
	src := &n.scratch
	for _, q := range n.children {
		k, err := q.Recv(src.buf())
		if err != nil {
			return err
		}
		src.setLen(k)
		fn(msg, src)
	}
	if n.lead != nil {
		for i := range n.lead.ch.Peers() {
			k, err := n.lead.RecvFrom(i, src.buf())
			if err != nil {
				return err
			}
			src.setLen(k)
			fn(msg, src)
		}
	}
	switch {
	case n.root:
		return nil
	case n.join != nil:
		return n.join.Send(msg.Bytes())
	default:
		return n.parent.Send(msg.Bytes())
	}
}

// ReduceNotify returns at the root once every participant has called it.
// Other participants return as soon as their subtree has arrived.
func (n *Node) ReduceNotify() error {
	if err := n.enter(); err != nil {
		return err
	}
	return n.exit("reduce notify", n.reduceNotify())
}

func (n *Node) reduceNotify() error {
	for _, q := range n.children {
		if err := q.RecvNotification(); err != nil {
			return err
		}
	}
	if n.lead != nil {
		for i := range n.lead.ch.Peers() {
			if err := n.lead.RecvNotificationFrom(i); err != nil {
				return err
			}
		}
	}
	switch {
	case n.root:
		return nil
	case n.join != nil:
		return n.join.Notify()
	default:
		return n.parent.Notify()
	}
}

// ReduceAll is Reduce followed by a broadcast of the root's result, so that
// every participant ends with the same msg.
func (n *Node) ReduceAll(msg *Message, fn ReduceFunc) error {
	if err := n.enter(); err != nil {
		return err
	}
	err := n.reduce(msg, fn)
	if err == nil {
		if n.root {
			err = n.sendDown(msg.Bytes())
		} else {
			err = n.receive(msg)
		}
	}
	return n.exit("reduce all", err)
}
