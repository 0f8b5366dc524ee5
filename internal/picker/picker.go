// Package picker asks the user to choose one template. Dismissal is a normal
// outcome reported through Choice.Cancelled.
package picker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/models"
)

// Choice is the result of a pick.
type Choice struct {
	Item      models.Document
	Cancelled bool
}

// Picker selects one of items. label renders an item for display.
type Picker interface {
	Pick(ctx context.Context, items []models.Document, label func(models.Document) string) (Choice, error)
}

// Func adapts a function to Picker.
type Func func(ctx context.Context, items []models.Document, label func(models.Document) string) (Choice, error)

func (f Func) Pick(ctx context.Context, items []models.Document, label func(models.Document) string) (Choice, error) {
	return f(ctx, items, label)
}

// Prompt lists items on Out and reads the answer from In.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Pick prints a numbered list and waits for a line. An empty answer, "q",
// EOF or an empty pool cancel. An answer may be a number or a label.
func (p Prompt) Pick(ctx context.Context, items []models.Document, label func(models.Document) string) (Choice, error) {
	if len(items) == 0 {
		fmt.Fprintln(p.Out, "no templates available")
		return Choice{Cancelled: true}, nil
	}
	for i, it := range items {
		fmt.Fprintf(p.Out, "%3d) %s\n", i+1, label(it))
	}
	fmt.Fprint(p.Out, "template> ")

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return Choice{}, ctx.Err()
	case a = <-ch:
	}
	if a.err != nil && a.err != io.EOF {
		return Choice{}, fmt.Errorf("picker: read answer: %w", a.err)
	}
	reply := strings.TrimSpace(a.line)
	if reply == "" || reply == "q" {
		return Choice{Cancelled: true}, nil
	}
	if n, err := strconv.Atoi(reply); err == nil {
		if n < 1 || n > len(items) {
			return Choice{}, fmt.Errorf("picker: choice %d out of range 1..%d", n, len(items))
		}
		return Choice{Item: items[n-1]}, nil
	}
	return match(items, label, reply)
}

// ByName picks the item whose label or path equals name.
type ByName string

func (b ByName) Pick(_ context.Context, items []models.Document, label func(models.Document) string) (Choice, error) {
	return match(items, label, string(b))
}

func match(items []models.Document, label func(models.Document) string, name string) (Choice, error) {
	for _, it := range items {
		if label(it) == name || it.Path == name {
			return Choice{Item: it}, nil
		}
	}
	return Choice{}, fmt.Errorf("template %q: %w", name, apperr.ErrNotFound)
}

// Dismiss always cancels.
var Dismiss = Func(func(context.Context, []models.Document, func(models.Document) string) (Choice, error) {
	return Choice{Cancelled: true}, nil
})
