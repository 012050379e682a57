package back

// sliceSet sets s[i] = x growing s with fill as needed.
func sliceSet[S ~[]E, E any, I interface{ ~int }](s S, i I, x, fill E) S {
	for int(i) >= len(s) {
		s = append(s, fill)
	}

	s[i] = x

	return s
}
