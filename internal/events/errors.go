package events

import "fmt"

type sinkPanic struct {
	sink  string
	value any
}

func (p *sinkPanic) Error() string {
	return fmt.Sprintf("sink %s panicked: %v", p.sink, p.value)
}
