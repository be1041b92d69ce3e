package container

import "container/heap"

// item 优先队列中单个元素
type item[T any] struct {
	Value    T       // 元素的值（任意类型）
	Priority float64 // 元素在队列中的优先级（越小越优先）
	seq      uint64  // 入队序号，优先级相同时先入先出
	index    int     // 项在堆中的索引，由heap.Interface方法维护
}

// priorityQueue 优先队列实现了 heap.Interface 并保存了元素
type priorityQueue[T any] []*item[T]

func (pq priorityQueue[T]) Len() int { return len(pq) }

// Less 比较两个元素的优先级
// 说明：优先级相同时按入队序号比较，保证弹出顺序与运行无关
func (pq priorityQueue[T]) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority < pq[j].Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue[T]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	n := len(*pq)
	item := x.(*item[T])
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue[T]) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // 避免内存泄漏
	item.index = -1 // 为了安全起见
	*pq = old[0 : n-1]
	return item
}

// PriorityQueue 最小优先队列
// 功能：提供优先队列的公共接口，封装内部堆实现
// 说明：优先级相同的元素按入队顺序弹出，A*搜索依赖这一点保证结果可复现
type PriorityQueue[T any] struct {
	queue priorityQueue[T] // 内部优先队列实现
	seq   uint64           // 下一个入队序号
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{queue: make(priorityQueue[T], 0)}
}

// Len 获取当前队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.queue)
}

// First 获取第一个元素（优先级数值最小的元素），不移除
func (q *PriorityQueue[T]) First() T {
	return q.queue[0].Value
}

// Push 加入元素（简单添加）
// 功能：向队列中添加新元素，但不维护堆结构
// 参数：value-要添加的元素值，priority-元素优先级
// 说明：添加后需要调用Heapify()来重新构建堆结构
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	q.queue = append(q.queue, &item[T]{
		Value:    value,
		Priority: priority,
		seq:      q.nextSeq(),
	})
}

// Heapify 在批量Push后重新构建堆
func (q *PriorityQueue[T]) Heapify() {
	heap.Init(&q.queue)
}

// HeapPush 加入元素（堆操作）
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.queue, &item[T]{
		Value:    value,
		Priority: priority,
		seq:      q.nextSeq(),
	})
}

// HeapPop 弹出优先级数值最小的元素（堆操作）
// 返回：value-元素值，priority-元素优先级
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	item := heap.Pop(&q.queue).(*item[T])
	return item.Value, item.Priority
}

func (q *PriorityQueue[T]) nextSeq() uint64 {
	s := q.seq
	q.seq++
	return s
}
