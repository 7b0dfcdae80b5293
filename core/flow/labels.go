package flow

import "github.com/trezcool/observo/core/lookup"

// Labels maps option values to the labels they were shown with, per lookup kind.
type Labels map[lookup.Kind]map[string]string

func (l Labels) AddOptions(kind lookup.Kind, opts []lookup.Option) {
	if len(opts) == 0 {
		return
	}
	byValue, ok := l[kind]
	if !ok {
		byValue = make(map[string]string, len(opts))
		l[kind] = byValue
	}
	for _, opt := range opts {
		byValue[opt.Value] = opt.Label
	}
}

// Label returns the label `value` was shown with, or `value` itself when unknown.
func (l Labels) Label(kind lookup.Kind, value string) string {
	if label, ok := l[kind][value]; ok && label != "" {
		return label
	}
	return value
}

func (l Labels) LabelAll(kind lookup.Kind, values []string) []string {
	labels := make([]string, 0, len(values))
	for _, v := range values {
		labels = append(labels, l.Label(kind, v))
	}
	return labels
}
