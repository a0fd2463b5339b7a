package replacer

import (
	"container/list" // For insertion order

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

// EvictionQueue records resident pages in the order they were loaded.
// FIFO evicts from its head; second-chance rotates through it.
type EvictionQueue struct {
	order    *list.List                           // Front is the oldest page
	elements map[pagemanager.PageID]*list.Element // PageID to list element
}

func NewEvictionQueue() *EvictionQueue {
	return &EvictionQueue{
		order:    list.New(),
		elements: make(map[pagemanager.PageID]*list.Element),
	}
}

// Push appends the page at the tail. A page already queued is moved to the tail.
func (q *EvictionQueue) Push(page *pagemanager.Page) {
	if elem, ok := q.elements[page.GetPageID()]; ok {
		q.order.MoveToBack(elem)
		return
	}
	q.elements[page.GetPageID()] = q.order.PushBack(page)
}

// Remove drops the page from the queue and reports whether it was queued.
func (q *EvictionQueue) Remove(page *pagemanager.Page) bool {
	elem, ok := q.elements[page.GetPageID()]
	if !ok {
		return false
	}
	q.order.Remove(elem)
	delete(q.elements, page.GetPageID())
	return true
}

// Front returns the oldest queued page, or nil when the queue is empty.
func (q *EvictionQueue) Front() *pagemanager.Page {
	elem := q.order.Front()
	if elem == nil {
		return nil
	}
	return elem.Value.(*pagemanager.Page)
}

// MoveToBack rotates a queued page to the tail.
func (q *EvictionQueue) MoveToBack(page *pagemanager.Page) {
	if elem, ok := q.elements[page.GetPageID()]; ok {
		q.order.MoveToBack(elem)
	}
}

func (q *EvictionQueue) Len() int { return q.order.Len() }

// Pages returns the queued pages from head to tail.
func (q *EvictionQueue) Pages() []*pagemanager.Page {
	pages := make([]*pagemanager.Page, 0, q.order.Len())
	for e := q.order.Front(); e != nil; e = e.Next() {
		pages = append(pages, e.Value.(*pagemanager.Page))
	}
	return pages
}

// Clear empties the queue.
func (q *EvictionQueue) Clear() {
	q.order.Init()
	q.elements = make(map[pagemanager.PageID]*list.Element)
}
