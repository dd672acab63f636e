package pool

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

var nowFunc = time.Now

// 通用客户端连接池
//
// 容量由Size限定，客户端按需创建；同一个客户端在任一时刻只会被一个调用方持有。
// 客户端类型C必须可比较（一般是指针），连接池用它记录借出状态。
type ClientPool[C comparable] struct {
	// 客户端创建、重连、关闭逻辑，业务自己实现
	factory   Factory[C]
	validator Validator[C]
	config    ClientPoolConfig

	// 容量信号量，每借出（或正在创建）一个客户端占用一个位置
	slots chan struct{}
	// 连接池关闭时close，唤醒所有等待的Borrow
	done chan struct{}

	// 同步锁，确保count、closed、idle、checkedOut等公共数据并发操作安全
	lock sync.Mutex
	// 空闲客户端，用双端队列存储，队头是最近归还的
	idle list.List
	// 已借出的客户端
	checkedOut map[C]struct{}
	// 记录当前已经创建的客户端，确保不超过Size
	count  int
	closed bool

	// 未归还的客户端，Close时等待它们归还
	outstanding sync.WaitGroup
	closeOnce   sync.Once
	janitorStop chan struct{}
	janitorDone chan struct{}

	borrows    uint64
	creates    uint64
	reconnects uint64
	discards   uint64
}

// 空闲客户端及其放入空闲队列的时间
type idleClient[C any] struct {
	c C
	t time.Time
}

// Stats 连接池统计
type Stats struct {
	Size       int
	Created    int
	Idle       int
	InUse      int
	Borrows    uint64
	Creates    uint64
	Reconnects uint64
	Discards   uint64
}

// 创建连接池
func NewClientPool[C comparable](factory Factory[C], config ClientPoolConfig) (*ClientPool[C], error) {
	if err := checkClientPoolConfig(&config); err != nil {
		return nil, err
	}

	p := &ClientPool[C]{
		factory:     factory,
		config:      config,
		slots:       make(chan struct{}, config.Size),
		done:        make(chan struct{}),
		checkedOut:  make(map[C]struct{}, config.Size),
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	if v, ok := factory.(Validator[C]); ok {
		p.validator = v
	}

	// 初始化空闲链接
	p.initConn()

	// 定期清理过期空闲连接
	if config.IdleTimeout > 0 {
		go p.clearConn()
	} else {
		close(p.janitorDone)
	}

	log.WithField("size", config.Size).
		WithField("retryOnConnectionError", config.RetryOnConnectionError).
		Debug("ClientPool created")
	return p, nil
}

// Borrow 借出一个客户端
// 没有空闲客户端且已达容量上限时阻塞，直到有客户端归还、ctx结束、等待超时或连接池关闭
func (p *ClientPool[C]) Borrow(ctx context.Context) (C, error) {
	var zero C
	if p.isClosed() {
		return zero, ErrPoolClosed
	}
	if err := p.acquireSlot(ctx); err != nil {
		return zero, err
	}

	client, err := p.get(ctx)
	if err != nil {
		p.freeSlot()
		return zero, err
	}
	atomic.AddUint64(&p.borrows, 1)
	return client, nil
}

func (p *ClientPool[C]) acquireSlot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	default:
	}

	var expire <-chan time.Time
	if p.config.BorrowTimeout > 0 {
		timer := time.NewTimer(p.config.BorrowTimeout)
		defer timer.Stop()
		expire = timer.C
	}

	log.Debug("ClientPool 已达最大连接数，等待客户端归还")
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-expire:
		return ErrOverMax
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ClientPool[C]) freeSlot() {
	<-p.slots
}

// 获取客户端的逻辑实现，调用方已经持有一个容量位置
func (p *ClientPool[C]) get(ctx context.Context) (C, error) {
	var zero C
	for {
		p.lock.Lock()
		if p.closed {
			p.lock.Unlock()
			return zero, ErrPoolClosed
		}

		element := p.idle.Front()
		if element == nil {
			break
		}
		idleC := element.Value.(*idleClient[C])
		p.idle.Remove(element)
		p.checkout(idleC.c)
		p.lock.Unlock()

		// 客户端从空闲队列获取，可能已经断开了，这里再检查一遍
		if p.valid(idleC.c) {
			return idleC.c, nil
		}
		log.Debug("ClientPool 空闲客户端已失效，关闭后重试")
		p.discard(idleC.c, false)
	}

	// 先加1，防止创建连接耗时太久时新的请求到来，导致实际连接数超过Size
	p.count++
	p.outstanding.Add(1)
	p.lock.Unlock()

	client, err := p.factory.Create(ctx)
	if err == nil && !p.valid(client) {
		p.closeClient(client)
		err = ErrSocketDisconnect
	}
	if err != nil {
		p.lock.Lock()
		p.count--
		p.lock.Unlock()
		p.outstanding.Done()
		log.WithError(err).Warn("ClientPool 创建客户端失败")
		return zero, constructionError(err)
	}
	atomic.AddUint64(&p.creates, 1)

	p.lock.Lock()
	if p.closed {
		p.count--
		p.lock.Unlock()
		p.closeClient(client)
		p.outstanding.Done()
		return zero, ErrPoolClosed
	}
	p.checkedOut[client] = struct{}{}
	p.lock.Unlock()
	return client, nil
}

// checkout 记录借出，调用方持有锁
func (p *ClientPool[C]) checkout(client C) {
	p.checkedOut[client] = struct{}{}
	p.outstanding.Add(1)
}

func (p *ClientPool[C]) valid(client C) bool {
	return p.validator == nil || p.validator.Validate(client)
}

// Release 归还客户端，唤醒一个等待中的Borrow
func (p *ClientPool[C]) Release(client C) error {
	p.lock.Lock()
	if _, ok := p.checkedOut[client]; !ok {
		p.lock.Unlock()
		log.Error("ClientPool 归还了未借出的客户端")
		return ErrInvalidConn
	}
	delete(p.checkedOut, client)

	if p.closed {
		p.count--
		p.lock.Unlock()
		p.closeClient(client)
	} else {
		p.idle.PushFront(&idleClient[C]{
			c: client,
			t: nowFunc(),
		})
		p.lock.Unlock()
	}

	p.outstanding.Done()
	p.freeSlot()
	return nil
}

// discard 丢弃一个已借出的客户端，空出的位置可以重新创建
func (p *ClientPool[C]) discard(client C, freeSlot bool) {
	p.lock.Lock()
	delete(p.checkedOut, client)
	p.count--
	p.lock.Unlock()

	p.closeClient(client)
	atomic.AddUint64(&p.discards, 1)
	p.outstanding.Done()
	if freeSlot {
		p.freeSlot()
	}
}

// Run 借出一个客户端执行do，结束后无论成功失败都归还
//
// do返回连接异常、allowRetry为true且连接池开启了RetryOnConnectionError时，
// 原地重连客户端后再执行一次do，第二次的结果直接返回。重连失败则丢弃该客户端。
// do自己调用Reconnect失败并返回 *ReconnectError 时，客户端同样被丢弃。
func (p *ClientPool[C]) Run(ctx context.Context, do func(client C) error, allowRetry bool) error {
	client, err := p.Borrow(ctx)
	if err != nil {
		return err
	}

	discarded := false
	defer func() {
		if !discarded {
			p.Release(client)
		}
	}()
	finish := func(err error) error {
		if IsReconnectError(err) {
			discarded = true
			p.discard(client, true)
			log.WithError(err).Error("ClientPool 重连失败，丢弃客户端")
		}
		return err
	}

	err = do(client)
	if err == nil || !allowRetry || !p.config.RetryOnConnectionError || !p.IsConnectionError(err) {
		return finish(err)
	}

	log.WithError(err).Warn("ClientPool 连接异常，重连后重试")
	if rerr := p.Reconnect(ctx, client); rerr != nil {
		return finish(&ReconnectError{Err: rerr, Cause: err})
	}
	return finish(do(client))
}

// Reconnect 原地重连一个已借出的客户端，只能由持有者调用
// 失败时调用方应返回 *ReconnectError，由Run丢弃该客户端
func (p *ClientPool[C]) Reconnect(ctx context.Context, client C) error {
	atomic.AddUint64(&p.reconnects, 1)
	return p.factory.Reconnect(ctx, client)
}

// Classify 和包级Classify相同，但连接异常使用业务实现的判断
func (p *ClientPool[C]) Classify(err error) Kind {
	kind := Classify(err)
	if kind == KindOperation && p.IsConnectionError(err) {
		return KindConnection
	}
	return kind
}

// IsConnectionError 使用业务实现的连接异常判断
func (p *ClientPool[C]) IsConnectionError(err error) bool {
	return p.factory.IsConnectionError(err)
}

func (p *ClientPool[C]) closeClient(client C) {
	if err := p.factory.Close(client); err != nil {
		log.WithError(err).Warn("ClientPool 关闭客户端失败")
	}
}

// Close 关闭连接池，幂等
// 空闲客户端立即关闭，已借出的客户端等归还时关闭，Close会等待所有客户端归还。
func (p *ClientPool[C]) Close() error {
	p.closeOnce.Do(func() {
		p.lock.Lock()
		p.closed = true
		var idle []C
		for iter := p.idle.Front(); iter != nil; iter = iter.Next() {
			idle = append(idle, iter.Value.(*idleClient[C]).c)
		}
		p.idle.Init()
		p.count -= len(idle)
		p.lock.Unlock()

		close(p.done)
		close(p.janitorStop)

		for _, c := range idle {
			p.closeClient(c)
		}

		p.outstanding.Wait()
		<-p.janitorDone
		log.Debug("ClientPool closed")
	})
	return nil
}

func (p *ClientPool[C]) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

func (p *ClientPool[C]) clearConn() {
	defer close(p.janitorDone)

	interval := checkInterval
	if p.config.IdleTimeout < interval {
		interval = p.config.IdleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.janitorStop:
			return
		case <-ticker.C:
			p.CheckTimeout()
		}
	}
}

// CheckTimeout 关闭空闲超过IdleTimeout的客户端
func (p *ClientPool[C]) CheckTimeout() {
	if p.config.IdleTimeout <= 0 {
		return
	}

	var expired []C
	p.lock.Lock()
	for p.idle.Len() != 0 {
		element := p.idle.Back()
		conn := element.Value.(*idleClient[C])
		if conn.t.Add(p.config.IdleTimeout).After(nowFunc()) {
			break
		}

		//timeout && clear
		p.idle.Remove(element)
		p.count--
		expired = append(expired, conn.c)
	}
	p.lock.Unlock()

	//close client connection
	for _, c := range expired {
		p.closeClient(c)
	}
	if len(expired) > 0 {
		log.WithField("closed", len(expired)).Debug("ClientPool 清理超时空闲客户端")
	}
}

func (p *ClientPool[C]) GetIdleCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.idle.Len()
}

func (p *ClientPool[C]) GetConnCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.count
}

func (p *ClientPool[C]) Stats() Stats {
	p.lock.Lock()
	defer p.lock.Unlock()
	return Stats{
		Size:       p.config.Size,
		Created:    p.count,
		Idle:       p.idle.Len(),
		InUse:      len(p.checkedOut),
		Borrows:    atomic.LoadUint64(&p.borrows),
		Creates:    atomic.LoadUint64(&p.creates),
		Reconnects: atomic.LoadUint64(&p.reconnects),
		Discards:   atomic.LoadUint64(&p.discards),
	}
}

func (p *ClientPool[C]) initConn() {
	initCount := p.config.InitialConns
	if initCount <= 0 {
		return
	}

	ctx := context.Background()
	clients := make([]C, 0, initCount)
	for i := 0; i < initCount; i++ {
		client, err := p.Borrow(ctx)
		if err != nil {
			log.WithError(err).Warn("ClientPool 预创建客户端失败")
			break
		}
		clients = append(clients, client)
	}
	for _, c := range clients {
		p.Release(c)
	}
}
