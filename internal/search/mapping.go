package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for part documents.
//
// Codes are matched exactly or by prefix on a lowercased keyword field.
// Descriptions are searched through a diacritic-folded copy; the original is
// stored for display.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	codeFieldMapping := bleve.NewTextFieldMapping()
	codeFieldMapping.Analyzer = keyword.Name
	codeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("code", codeFieldMapping)

	codeKeyFieldMapping := bleve.NewTextFieldMapping()
	codeKeyFieldMapping.Analyzer = keyword.Name
	codeKeyFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("code_key", codeKeyFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Index = false
	descFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	searchTextFieldMapping := bleve.NewTextFieldMapping()
	searchTextFieldMapping.Analyzer = en.AnalyzerName
	searchTextFieldMapping.Store = false
	searchTextFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("search_text", searchTextFieldMapping)

	priceFieldMapping := bleve.NewNumericFieldMapping()
	priceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("price", priceFieldMapping)

	figuresFieldMapping := bleve.NewTextFieldMapping()
	figuresFieldMapping.Index = false
	figuresFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("figures", figuresFieldMapping)

	figureKeysFieldMapping := bleve.NewTextFieldMapping()
	figureKeysFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("figure_keys", figureKeysFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
