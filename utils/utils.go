package utils

import (
	"strconv"
	"strings"
	"time"
)

func Unique[T comparable](param []T) []T {
	set := make(map[T]struct{})
	var result []T
	for _, v := range param {
		if _, exist := set[v]; exist {
			continue
		}
		result = append(result, v)
		set[v] = struct{}{}
	}
	return result
}

func IfElse[T any](b bool, x T, y T) T {
	if b {
		return x
	}
	return y
}

func ParseSlackTimestamp(ts string) int64 {
	if len(ts) == 0 {
		return 0
	}
	tm := strings.Split(ts, ".")
	switch len(tm) {
	case 2:
		sec, err := strconv.ParseInt(tm[0], 10, 64)
		if err != nil {
			return 0
		}
		nsec, err := strconv.ParseInt(tm[1]+strings.Repeat("0", 9-len(tm[1])), 10, 64)
		if err != nil {
			return 0
		}
		return time.Unix(sec, nsec).UnixNano()
	case 1:
		sec, err := strconv.ParseInt(tm[0], 10, 64)
		if err != nil {
			return 0
		}
		return time.Unix(sec, 0).UnixNano()
	default:
		return 0
	}
}

func Map[T any, S any](data []S, f func(v S) T) []T {
	var result = make([]T, 0, len(data))
	for _, datum := range data {
		result = append(result, f(datum))
	}
	return result
}

