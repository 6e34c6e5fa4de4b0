package dictloader

// Dedupe returns a new map where every variant list has its empty strings and
// exact duplicates removed, keeping the first-seen order. Matching is case
// sensitive. The input is not modified, and Dedupe(Dedupe(m)) equals Dedupe(m).
func Dedupe(vm VariantMap) VariantMap {
	out := make(VariantMap, len(vm))

	for key, variants := range vm {
		out[key] = dedupeVariants(variants)
	}

	return out
}

func dedupeVariants(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))

	out := make([]string, 0, len(variants))

	for _, v := range variants {
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}

		out = append(out, v)
	}

	return out
}
