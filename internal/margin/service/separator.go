package service

import "strings"

// кандидаты в порядке предпочтения при равенстве
var separators = [...]string{";", ",", "\t"}

// DetectSeparator выбирает самый частый разделитель в образце строки.
// Если ни одного нет — ";".
func DetectSeparator(sample string) string {
	best, bestN := separators[0], 0
	for _, sep := range separators {
		if n := strings.Count(sample, sep); n > bestN {
			best, bestN = sep, n
		}
	}
	return best
}
