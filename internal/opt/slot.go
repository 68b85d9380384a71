package opt

// SlotSize_ is the size in bytes of one queue slot. Both peers of a queue
// must agree on it, so it does not follow the detected cache line size.
const SlotSize_ = 64
