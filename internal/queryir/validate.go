package queryir

import "fmt"

// Validate checks that a predicate only references known fields and that
// every leaf is well formed. It is a pure function with no side effects.
func Validate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return validateField(pred.Field)
	case In:
		return validateField(pred.Field)
	case PairIn:
		if pred.Fields[0] == pred.Fields[1] {
			return fmt.Errorf("pair predicate repeats field %q", pred.Fields[0])
		}
		if err := validateField(pred.Fields[0]); err != nil {
			return err
		}
		return validateField(pred.Fields[1])
	case And:
		for i, child := range pred.Predicates {
			if err := Validate(child); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func validateField(field string) error {
	if field == "" {
		return fmt.Errorf("predicate field is empty")
	}
	if !KnownFields[field] {
		return fmt.Errorf("unknown predicate field %q", field)
	}
	return nil
}
