package core

import (
	"fmt"
)

// ObjectStream gives access to the objects packed in a /Type /ObjStm
// stream. The payload is decoded and the header parsed on first use.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	decoded []byte
	offsets []objStmOffset
	cache   map[int]Object
}

type objStmOffset struct {
	num    int
	offset int
}

// NewObjectStream validates the dictionary of an object stream.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("stream type is /%s, want /ObjStm", t)
	}
	n, err := AsInt(stream.Dict["N"])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("object stream /N: invalid value %v", stream.Dict["N"])
	}
	first, err := AsInt(stream.Dict["First"])
	if err != nil || first < 0 {
		return nil, fmt.Errorf("object stream /First: invalid value %v", stream.Dict["First"])
	}
	return &ObjectStream{
		stream: stream,
		n:      n,
		first:  first,
		cache:  make(map[int]Object),
	}, nil
}

// N returns the declared number of objects.
func (os *ObjectStream) N() int { return os.n }

func (os *ObjectStream) load() error {
	if os.decoded != nil {
		return nil
	}
	data, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if os.first > len(data) {
		return fmt.Errorf("object stream /First %d beyond %d decoded bytes", os.first, len(data))
	}

	p := NewParser(data[:os.first])
	offsets := make([]objStmOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		numObj, err := p.ParseObject()
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		offObj, err := p.ParseObject()
		if err != nil {
			return fmt.Errorf("object stream header pair %d: %w", i, err)
		}
		num, err1 := AsInt(numObj)
		off, err2 := AsInt(offObj)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("object stream header pair %d is not two integers", i)
		}
		offsets = append(offsets, objStmOffset{num: num, offset: off})
	}
	os.decoded = data
	os.offsets = offsets
	return nil
}

// GetObjectByIndex returns the object at position index in the header and
// its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.offsets))
	}
	entry := os.offsets[index]
	if obj, ok := os.cache[index]; ok {
		return obj, entry.num, nil
	}

	start := os.first + entry.offset
	if start >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object %d offset %d beyond decoded data", entry.num, start)
	}
	obj, err := NewParser(os.decoded[start:]).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object %d: %w", entry.num, err)
	}
	os.cache[index] = obj
	return obj, entry.num, nil
}

// GetObjectByNumber returns the object with number num. index is a hint
// from the cross-reference entry and is tried first.
func (os *ObjectStream) GetObjectByNumber(num, index int) (Object, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	if index >= 0 && index < len(os.offsets) && os.offsets[index].num == num {
		obj, _, err := os.GetObjectByIndex(index)
		return obj, err
	}
	for i, entry := range os.offsets {
		if entry.num == num {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not found in object stream", num)
}

// ObjectNumbers lists the object numbers in header order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.num
	}
	return nums, nil
}
