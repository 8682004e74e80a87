package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell addresses a single spreadsheet cell. Row and Col are 1-based.
type Cell struct {
	Row int
	Col int
}

// ParseCell parses an A1 reference such as "AB12" or "$C$5".
func ParseCell(ref string) (Cell, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ref), "$", ""))
	if s == "" {
		return Cell{}, fmt.Errorf("ParseCell: empty reference")
	}

	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Cell{}, fmt.Errorf("ParseCell: invalid reference %q", ref)
	}

	col, err := ColumnNumber(s[:i])
	if err != nil {
		return Cell{}, fmt.Errorf("ParseCell: %w", err)
	}
	row, err := strconv.Atoi(s[i:])
	if err != nil || row < 1 {
		return Cell{}, fmt.Errorf("ParseCell: invalid row in %q", ref)
	}

	return Cell{Row: row, Col: col}, nil
}

// MustCell is ParseCell for references known at compile time.
func MustCell(ref string) Cell {
	c, err := ParseCell(ref)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the A1 form of the cell.
func (c Cell) String() string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row)
}

// ColumnNumber converts column letters ("A", "AB") to a 1-based index.
func ColumnNumber(letters string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(letters))
	if s == "" {
		return 0, fmt.Errorf("empty column")
	}
	n := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// ColumnName converts a 1-based column index to letters.
func ColumnName(n int) string {
	if n < 1 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// Range is a closed rectangle of cells.
type Range struct {
	Start Cell
	End   Cell
}

// ParseRange parses "L4:S52". A single cell reference yields a 1x1 range.
func ParseRange(ref string) (Range, error) {
	parts := strings.Split(ref, ":")
	switch len(parts) {
	case 1:
		c, err := ParseCell(parts[0])
		if err != nil {
			return Range{}, err
		}
		return Range{Start: c, End: c}, nil
	case 2:
		start, err := ParseCell(parts[0])
		if err != nil {
			return Range{}, err
		}
		end, err := ParseCell(parts[1])
		if err != nil {
			return Range{}, err
		}
		return NewRange(start, end), nil
	default:
		return Range{}, fmt.Errorf("ParseRange: invalid range %q", ref)
	}
}

// NewRange builds a range from two corners in any order.
func NewRange(a, b Cell) Range {
	return Range{
		Start: Cell{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)},
		End:   Cell{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)},
	}
}

func (r Range) String() string {
	if r.Start == r.End {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}

// Contains reports whether c lies inside r.
func (r Range) Contains(c Cell) bool {
	return c.Row >= r.Start.Row && c.Row <= r.End.Row &&
		c.Col >= r.Start.Col && c.Col <= r.End.Col
}

// Overlaps reports whether the two ranges share at least one cell.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Row <= o.End.Row && o.Start.Row <= r.End.Row &&
		r.Start.Col <= o.End.Col && o.Start.Col <= r.End.Col
}
