package smelt

import "fmt"

// Broadcast sends msg from the root to every participant. It returns as
// soon as the payload sits in the queues of the root's children;
// delivery to the rest of the tree is carried out by the receivers'
// Receive calls.
//
// Only the root may broadcast. Any other participant gets ErrNotRoot and
// nothing is written.
func (n *Node) Broadcast(msg *Message) error {
	if !n.root {
		return fmt.Errorf("%w: participant %d", ErrNotRoot, n.id)
	}
	if err := n.enter(); err != nil {
		return err
	}
	return n.exit("broadcast", n.sendDown(msg.Bytes()))
}

// BroadcastNotify is Broadcast without payload. The root starts it; every
// other participant waits for it from its parent and passes it on.
func (n *Node) BroadcastNotify() error {
	if err := n.enter(); err != nil {
		return err
	}
	return n.exit("broadcast notify", n.broadcastNotify())
}

func (n *Node) broadcastNotify() error {
	if err := n.recvDown(nil); err != nil {
		return err
	}
	if err := n.notifyKids(); err != nil {
		return err
	}
	if n.lead != nil {
		return n.lead.Notify()
	}
	return nil
}

// Receive waits for the root's broadcast, forwards it to the node's
// children and copies it into msg. Payload beyond msg.Cap() is dropped.
func (n *Node) Receive(msg *Message) error {
	if n.root {
		return fmt.Errorf("%w: participant %d", ErrRootReceive, n.id)
	}
	if err := n.enter(); err != nil {
		return err
	}
	return n.exit("receive", n.receive(msg))
}

func (n *Node) receive(msg *Message) error {
	k, err := n.recvFromParent(n.buf[:])
	if err != nil {
		return err
	}
	if err := n.sendDown(n.buf[:k]); err != nil {
		return err
	}
	msg.setLen(copy(msg.buf(), n.buf[:k]))
	return nil
}

// recvDown waits for the parent's next notification. The root has
// nothing to wait for.
func (n *Node) recvDown(dst []byte) error {
	if n.root {
		return nil
	}
	_, err := n.recvFromParent(dst)
	return err
}

func (n *Node) recvFromParent(dst []byte) (int, error) {
	if n.join != nil {
		return n.join.Recv(dst)
	}
	return n.parent.Recv(dst)
}

// sendDown hands p to every ring child, then once to the members of the
// cluster n leads.
func (n *Node) sendDown(p []byte) error {
	for _, q := range n.children {
		if err := q.Send(p); err != nil {
			return err
		}
	}
	if n.lead != nil {
		return n.lead.Send(p)
	}
	return nil
}
