package pool

import "testing"

type scratch struct {
	data  []byte
	reset int
}

func (s *scratch) Reset() {
	s.data = s.data[:0]
	s.reset++
}

func TestGetReturnsConstructedValue(t *testing.T) {
	p := NewLitePool(func() *scratch {
		return &scratch{data: make([]byte, 0, 8)}
	})

	v := p.Get()
	if v == nil {
		t.Fatal("expected a constructed value")
	}
}

func TestPutResets(t *testing.T) {
	p := NewLitePool(func() *scratch { return &scratch{} })

	v := p.Get()
	v.data = append(v.data, 'x')
	p.Put(v)

	if v.reset != 1 {
		t.Errorf("expected Reset called once on Put, got %d", v.reset)
	}
	if len(v.data) != 0 {
		t.Errorf("expected data cleared, got %d bytes", len(v.data))
	}
}

func TestNilConstructorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil constructor")
		}
	}()
	NewLitePool[*scratch](nil)
}
