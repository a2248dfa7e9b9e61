package survey

import (
	"fmt"
	"strconv"
)

// Order is the 1-based position of a question within a campaign. The dialogue
// refers to questions by this label (as a string like "1" or "2"), never by
// database id. Parsing happens once at the boundary; everything past it
// compares Orders, not mixed strings and ints.
type Order int

func ParseOrder(s string) (Order, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid question order %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid question order %d: must be 1 or greater", n)
	}
	return Order(n), nil
}

func (o Order) String() string {
	return strconv.Itoa(int(o))
}
