package container

import "log"

// Deque 有界双端队列（环形缓冲区）
// 功能：支持尾部追加、头部弹出和下标访问
// 说明：队列满时从尾部追加会挤掉头部最旧的元素，容量可以通过Grow扩大
type Deque[T any] struct {
	buf  []T // 环形缓冲区
	head int // 头部元素在buf中的下标
	n    int // 当前元素个数
}

// NewDeque 创建容量为capacity的双端队列
func NewDeque[T any](capacity int) *Deque[T] {
	if capacity <= 0 {
		log.Panicf("container: deque capacity must be positive, got %d", capacity)
	}
	return &Deque[T]{buf: make([]T, capacity)}
}

// Len 当前元素个数
func (d *Deque[T]) Len() int {
	return d.n
}

// Cap 队列容量
func (d *Deque[T]) Cap() int {
	return len(d.buf)
}

// PushBack 从尾部追加元素
// 返回：队列已满时被挤出的头部元素与true
func (d *Deque[T]) PushBack(v T) (evicted T, ok bool) {
	if d.n == len(d.buf) {
		evicted, ok = d.PopFront()
	}
	d.buf[(d.head+d.n)%len(d.buf)] = v
	d.n++
	return
}

// PopFront 弹出头部元素，队列为空时返回false
func (d *Deque[T]) PopFront() (v T, ok bool) {
	if d.n == 0 {
		return v, false
	}
	var zero T
	v = d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	return v, true
}

// Front 头部元素，队列为空时panic
func (d *Deque[T]) Front() T {
	return d.At(0)
}

// Back 尾部元素，队列为空时panic
func (d *Deque[T]) Back() T {
	return d.At(d.n - 1)
}

// At 按下标访问，0为头部
func (d *Deque[T]) At(i int) T {
	if i < 0 || i >= d.n {
		log.Panicf("container: deque index %d out of range [0,%d)", i, d.n)
	}
	return d.buf[(d.head+i)%len(d.buf)]
}

// Clear 清空队列，容量不变
func (d *Deque[T]) Clear() {
	var zero T
	for i := 0; i < d.n; i++ {
		d.buf[(d.head+i)%len(d.buf)] = zero
	}
	d.head, d.n = 0, 0
}

// Grow 将容量扩大到capacity，容量不缩小
func (d *Deque[T]) Grow(capacity int) {
	if capacity <= len(d.buf) {
		return
	}
	buf := make([]T, capacity)
	for i := 0; i < d.n; i++ {
		buf[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf, d.head = buf, 0
}

// Slice 按从头到尾的顺序复制出全部元素
func (d *Deque[T]) Slice() []T {
	res := make([]T, d.n)
	for i := range res {
		res[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	return res
}
