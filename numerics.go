// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed codes.txt
var numericTableSource string

var (
	numericOnce     sync.Once
	codeToSymbol    map[string]string
	symbolToCode    map[string]string
)

// loadNumericTable parses codes.txt once, lazily, on first use.
func loadNumericTable() {
	codeToSymbol = make(map[string]string)
	symbolToCode = make(map[string]string)

	for _, line := range strings.Split(numericTableSource, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}

		code, symbol := fields[0], fields[1]
		codeToSymbol[code] = symbol
		symbolToCode[symbol] = code
	}
}

// NumericToSymbol maps a three-digit numeric reply code to its symbolic
// name (e.g. "001" -> "RPL_WELCOME"). If code is unknown, the lowercased
// input is returned unchanged and ok is false.
func NumericToSymbol(code string) (symbol string, ok bool) {
	numericOnce.Do(loadNumericTable)

	if symbol, ok = codeToSymbol[code]; ok {
		return symbol, true
	}

	return strings.ToLower(code), false
}

// SymbolToNumeric maps a symbolic reply name back to its three-digit
// numeric code. If symbol is unknown, the lowercased input is returned
// unchanged and ok is false.
func SymbolToNumeric(symbol string) (code string, ok bool) {
	numericOnce.Do(loadNumericTable)

	if code, ok = symbolToCode[symbol]; ok {
		return code, true
	}

	return strings.ToLower(symbol), false
}

// isNumeric reports whether s consists of exactly three ASCII digits.
func isNumeric(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
