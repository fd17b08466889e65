package logparser

import "regexp"

// Exchange-protocol fragment patterns, grounded on
// original_source/src/titrack/parser/exchange_parser.go. The exchange
// protocol spans multiple lines; ParseLine recognizes each fragment shape
// independently and hands them to the exchange package's stateful
// correlator (spec.md §4.3).

var (
	exchangeSendStartPattern = regexp.MustCompile(`----Socket SendMessage STT----XchgSearchPrice----SynId = (\d+)`)
	exchangeRecvStartPattern = regexp.MustCompile(`----Socket RecvMessage STT----XchgSearchPrice----SynId = (\d+)`)
	exchangeEndPattern       = regexp.MustCompile(`----Socket (?:Send|Recv)Message End----`)
	exchangeReferPattern     = regexp.MustCompile(`\+refer \[(\d+)\]`)
	exchangeCurrencyPattern  = regexp.MustCompile(`\+prices\+\d+\+currency \[(\d+)\]`)
	exchangeUnitPricePattern = regexp.MustCompile(`\+(?:unitPrices\+)?\d+ \[([0-9.]+)\]`)
)
