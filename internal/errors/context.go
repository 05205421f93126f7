package errors

const (
	contextKeyOperation = "operation"
	contextKeyPath      = "path"
	contextKeyParameter = "parameter"
	contextKeyModule    = "module"
	contextKeyCommand   = "command"
	contextKeyExpected  = "expected"
	contextKeyActual    = "actual"
)

// ErrorContext captures structured metadata for categorized errors.
type ErrorContext struct {
	Operation string
	Path      string
	Parameter string
	Module    string
	Command   string
	Expected  string
	Actual    string
	Extra     map[string]any
}

// Merge returns a new ErrorContext combining the receiver with the provided context.
// Non-empty fields from the other context override existing values. Extra maps are merged.
func (ec ErrorContext) Merge(other ErrorContext) ErrorContext {
	result := ec

	if other.Operation != "" {
		result.Operation = other.Operation
	}
	if other.Path != "" {
		result.Path = other.Path
	}
	if other.Parameter != "" {
		result.Parameter = other.Parameter
	}
	if other.Module != "" {
		result.Module = other.Module
	}
	if other.Command != "" {
		result.Command = other.Command
	}
	if other.Expected != "" {
		result.Expected = other.Expected
	}
	if other.Actual != "" {
		result.Actual = other.Actual
	}

	if len(other.Extra) > 0 {
		extra := make(map[string]any, len(result.Extra)+len(other.Extra))
		for k, v := range result.Extra {
			extra[k] = v
		}
		for k, v := range other.Extra {
			extra[k] = v
		}
		result.Extra = extra
	}

	return result
}

// ToMap converts the context into a map for logging compatibility.
func (ec ErrorContext) ToMap() map[string]any {
	result := make(map[string]any)

	if ec.Operation != "" {
		result[contextKeyOperation] = ec.Operation
	}
	if ec.Path != "" {
		result[contextKeyPath] = ec.Path
	}
	if ec.Parameter != "" {
		result[contextKeyParameter] = ec.Parameter
	}
	if ec.Module != "" {
		result[contextKeyModule] = ec.Module
	}
	if ec.Command != "" {
		result[contextKeyCommand] = ec.Command
	}
	if ec.Expected != "" {
		result[contextKeyExpected] = ec.Expected
	}
	if ec.Actual != "" {
		result[contextKeyActual] = ec.Actual
	}

	for k, v := range ec.Extra {
		result[k] = v
	}

	return result
}
