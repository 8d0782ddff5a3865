package memory

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Index is the local keyword-search fallback for memory. It holds free
// text notes and documents ingested from a knowledge directory.
type Index struct {
	index bleve.Index
	path  string
}

// OpenIndex creates or opens a local memory index at dir. A corrupted
// index is deleted and recreated rather than failing the startup.
func OpenIndex(dir string) (*Index, error) {
	indexPath := filepath.Join(dir, "memory.bleve")

	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create memory index: %w", err)
		}
	} else if err != nil {
		log.Printf("memory index appears corrupted (error: %v), recreating", err)
		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted memory index: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate memory index: %w", err)
		}
	}

	return &Index{index: index, path: indexPath}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Analyzer = keyword.Name
	sourceField.Store = true
	sourceField.Index = true
	docMapping.AddFieldMappingsAt("source", sourceField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add stores one note. source may be empty for ad hoc notes.
func (ix *Index) Add(content string, meta map[string]any) error {
	source := ""
	if meta != nil {
		if s, ok := meta["source"].(string); ok {
			source = s
		}
	}
	doc := map[string]any{
		"content": content,
		"source":  source,
	}
	return ix.index.Index(uuid.NewString(), doc)
}

// Query returns the top k notes matching q by keyword relevance.
func (ix *Index) Query(q string, k int) ([]Recalled, error) {
	query := bleve.NewMatchQuery(q)
	req := bleve.NewSearchRequest(query)
	req.Size = k
	req.Fields = []string{"content", "source"}

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("memory search failed: %w", err)
	}

	out := make([]Recalled, 0, len(result.Hits))
	for _, hit := range result.Hits {
		r := Recalled{Metadata: map[string]any{"score": hit.Score}}
		if content, ok := hit.Fields["content"].(string); ok {
			r.Content = content
		}
		if source, ok := hit.Fields["source"].(string); ok && source != "" {
			r.Metadata["source"] = source
		}
		out = append(out, r)
	}
	return out, nil
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

// knowledge files worth ingesting
var knowledgeExts = map[string]bool{
	".md": true, ".txt": true, ".rst": true, ".adoc": true,
}

// IngestDir walks a knowledge directory and indexes every text document,
// honoring .gitignore patterns. Returns the number of files ingested.
func (ix *Index) IngestDir(root string) (int, error) {
	var patterns []string
	if lines, err := readIgnoreLines(filepath.Join(root, ".gitignore")); err == nil {
		patterns = append(patterns, lines...)
	}
	matcher := gitignore.CompileIgnoreLines(patterns...)

	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && rel != "." {
				return filepath.SkipDir
			}
			if matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !knowledgeExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if addErr := ix.Add(string(data), map[string]any{"source": rel}); addErr != nil {
			return addErr
		}
		count++
		return nil
	})
	return count, err
}

func readIgnoreLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
