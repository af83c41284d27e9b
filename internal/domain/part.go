package domain

import "strings"

// PartInfo is the catalog entry for a part code.
type PartInfo struct {
	Code        string `json:"kodepart"`
	Description string `json:"deskripsi"`
	Price       int64  `json:"harga"`
}

// PartLookup resolves part codes to their catalog info.
type PartLookup interface {
	Part(code string) (PartInfo, bool)
}

// PartMap is a PartLookup keyed by trimmed part code.
type PartMap map[string]PartInfo

// Part implements PartLookup.
func (m PartMap) Part(code string) (PartInfo, bool) {
	p, ok := m[strings.TrimSpace(code)]
	return p, ok
}

// Add stores a part, keeping the first entry when a code repeats.
func (m PartMap) Add(p PartInfo) {
	p.Code = strings.TrimSpace(p.Code)
	if p.Code == "" {
		return
	}
	if _, exists := m[p.Code]; !exists {
		m[p.Code] = p
	}
}

// EstimationItem is handed to the cost-estimation collaborator when a row's
// add action fires.
type EstimationItem struct {
	PartCode    string `json:"partCode"`
	Description string `json:"description"`
	Qty         int    `json:"qty"`
	Price       int64  `json:"price"`
}

// Total returns qty * price.
func (e EstimationItem) Total() int64 {
	return int64(e.Qty) * e.Price
}
