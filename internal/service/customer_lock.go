package service

import "sync"

const customerLockStripes = 64

// customerLocks 按客户ID分段的进程内互斥锁，配合数据库行锁串行化同一客户的读改写
type customerLocks struct {
	stripes [customerLockStripes]sync.Mutex
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{}
}

func (l *customerLocks) lock(customerID uint) func() {
	mu := &l.stripes[customerID%customerLockStripes]
	mu.Lock()
	return mu.Unlock
}
