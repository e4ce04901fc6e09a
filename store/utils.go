package store

func boolToInt(val bool) int {
	if val {
		return 1
	}
	return 0
}
