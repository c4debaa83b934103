package queue

import (
	"bytes"
	"container/list"
	"fmt"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// List is a bounded keyed list. Once max entries are held, pushing a new key
// evicts the oldest one. It is not safe for concurrent use.
type List[K comparable, V any] struct {
	inner *list.List
	index map[K]*list.Element
	max   int
}

func NewList[K comparable, V any](m int) *List[K, V] {
	if m <= 0 {
		m = 1
	}
	l := new(List[K, V])
	l.inner = list.New()
	l.index = make(map[K]*list.Element)
	l.max = m
	return l
}

// Push stores value under key. Replacing an existing key keeps its place.
func (l *List[K, V]) Push(key K, value V) {
	if e, ok := l.index[key]; ok {
		e.Value = entry[K, V]{key: key, value: value}
		return
	}
	if l.inner.Len() >= l.max {
		front := l.inner.Front()
		delete(l.index, front.Value.(entry[K, V]).key)
		l.inner.Remove(front)
	}
	l.index[key] = l.inner.PushBack(entry[K, V]{key: key, value: value})
}

func (l *List[K, V]) Get(key K) (V, bool) {
	e, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.Value.(entry[K, V]).value, true
}

func (l *List[K, V]) Delete(key K) bool {
	e, ok := l.index[key]
	if !ok {
		return false
	}
	delete(l.index, key)
	l.inner.Remove(e)
	return true
}

// DeleteFunc removes every entry whose key satisfies del and returns how many
// were removed.
func (l *List[K, V]) DeleteFunc(del func(k K) bool) int {
	n := 0
	for e := l.inner.Front(); e != nil; {
		next := e.Next()
		k := e.Value.(entry[K, V]).key
		if del(k) {
			delete(l.index, k)
			l.inner.Remove(e)
			n++
		}
		e = next
	}
	return n
}

func (l *List[K, V]) Len() int {
	return l.inner.Len()
}

func (l *List[K, V]) String() string {
	var result bytes.Buffer
	result.WriteByte('[')
	for e := l.inner.Front(); e != nil; {
		v := e.Value.(entry[K, V])
		result.WriteString(fmt.Sprintf("%v:%v", v.key, v.value))
		e = e.Next()
		if e != nil {
			result.WriteByte(' ')
		}
	}
	result.WriteByte(']')
	return result.String()
}
