// Package partition groups normalized records by publication year.
package partition

import (
	"maps"
	"slices"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

// Route returns the partition key of rec.
func Route(rec record.Normalized) (int, record.Normalized) {
	return rec.Year(), rec
}

// Partition maps a year to its records in arrival order. Buckets are created
// on the first record of a year and only ever appended to.
type Partition struct {
	buckets map[int][]record.Normalized
	size    int
}

func New() *Partition {
	return &Partition{buckets: make(map[int][]record.Normalized)}
}

func (p *Partition) Add(rec record.Normalized) {
	year, rec := Route(rec)
	p.buckets[year] = append(p.buckets[year], rec)
	p.size++
}

// Append concatenates other after p, year by year. Calling it for chunk
// partitions in chunk order reproduces the order of a sequential pass.
func (p *Partition) Append(other *Partition) {
	if other == nil {
		return
	}
	for year, recs := range other.buckets {
		p.buckets[year] = append(p.buckets[year], recs...)
	}
	p.size += other.size
}

// Years returns the years present, ascending.
func (p *Partition) Years() []int {
	return slices.Sorted(maps.Keys(p.buckets))
}

func (p *Partition) Records(year int) []record.Normalized {
	return p.buckets[year]
}

func (p *Partition) Counts() map[int]int {
	counts := make(map[int]int, len(p.buckets))
	for year, recs := range p.buckets {
		counts[year] = len(recs)
	}
	return counts
}

func (p *Partition) Len() int {
	return p.size
}
