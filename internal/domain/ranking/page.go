package ranking

import "math"

// paginate slices ordered records; page and size are already >= 1.
func paginate(records []Record, page, size int) Page {
	total := len(records)
	pages := (total + size - 1) / size

	p := Page{
		Items:       []Record{},
		Total:       total,
		Page:        page,
		PageSize:    size,
		Pages:       pages,
		HasNext:     page < pages,
		HasPrevious: page > 1 && total > 0,
	}

	if page > pages {
		return p
	}
	offset := (page - 1) * size
	end := min(offset+size, total)
	p.Items = records[offset:end]
	return p
}

// Round2 rounds to two decimals, half away from zero. Display only.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
