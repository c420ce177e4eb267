// Package ticker keeps the user's ticker list and reports market data for it.
package ticker

import (
	"fmt"
	"sync"

	"github.com/giorgiojulius/cryptojulius/internal/jsonfile"
)

// List is an ordered set of ticker ids stored as a JSON array.
type List struct {
	path string
	mu   sync.Mutex
}

// NewList creates a list stored at path.
func NewList(path string) *List {
	return &List{path: path}
}

// All returns the tickers in insertion order.
func (l *List) All() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Add appends id unless it is already present.
func (l *List) Add(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tickers, err := l.read()
	if err != nil {
		return false, err
	}
	for _, t := range tickers {
		if t == id {
			return false, nil
		}
	}
	if err := jsonfile.Write(l.path, append(tickers, id)); err != nil {
		return false, fmt.Errorf("ticker list: %w", err)
	}
	return true, nil
}

// Remove drops id. Unknown ids report false.
func (l *List) Remove(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tickers, err := l.read()
	if err != nil {
		return false, err
	}
	kept := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tickers) {
		return false, nil
	}
	if err := jsonfile.Write(l.path, kept); err != nil {
		return false, fmt.Errorf("ticker list: %w", err)
	}
	return true, nil
}

func (l *List) read() ([]string, error) {
	tickers := []string{}
	if _, err := jsonfile.Read(l.path, &tickers); err != nil {
		return nil, fmt.Errorf("ticker list: %w", err)
	}
	return tickers, nil
}
