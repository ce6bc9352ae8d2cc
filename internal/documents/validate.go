package documents

import (
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Validate parses the rendered document and checks that every spread
// fragment is defined and every declared fragment is present.
func (d *Document) Validate() error {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Name: d.name, Input: d.text})
	if gqlErr != nil {
		return errors.Wrapf(gqlErr, "parsing %s", d.name)
	}
	if len(doc.Operations) == 0 && len(doc.Fragments) == 0 {
		return errors.Errorf("%s: empty document", d.name)
	}

	for _, name := range d.FragmentNames() {
		if doc.Fragments.ForName(name) == nil {
			return errors.Errorf("%s: declared fragment %q is not defined", d.name, name)
		}
	}

	for _, op := range doc.Operations {
		if err := checkSpreads(d.name, doc, op.SelectionSet); err != nil {
			return err
		}
	}
	for _, frag := range doc.Fragments {
		if err := checkSpreads(d.name, doc, frag.SelectionSet); err != nil {
			return err
		}
	}
	return nil
}

func checkSpreads(name string, doc *ast.QueryDocument, set ast.SelectionSet) error {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.FragmentSpread:
			if doc.Fragments.ForName(s.Name) == nil {
				return errors.Errorf("%s: fragment %q is spread but not defined", name, s.Name)
			}
		case *ast.InlineFragment:
			if err := checkSpreads(name, doc, s.SelectionSet); err != nil {
				return err
			}
		case *ast.Field:
			if err := checkSpreads(name, doc, s.SelectionSet); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateAll validates every registry operation.
func ValidateAll() error {
	for _, d := range All() {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
