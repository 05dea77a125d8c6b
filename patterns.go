// FILE: patterns.go
// Package main – single-candle and multi-candle candlestick pattern
// booleans, each a pure function of the last
// 1-4 rows of the series.
package main

import "math"

// Patterns is the struct-of-slices carrying all 14 pattern booleans,
// aligned to the candle series.
type Patterns struct {
	Hammer          []bool
	InvertedHammer  []bool
	HangingMan      []bool
	ShootingStar    []bool
	ThreeWhiteSoldiers []bool
	ThreeBlackCrows   []bool
	Doji            []bool
	ThreeLineStrike []bool
	TwoBlackGapping []bool
	MorningStar     []bool
	EveningStar     []bool
	AbandonedBaby   []bool
	MorningDojiStar []bool
	EveningDojiStar []bool
}

func body(c Candle) float64    { return math.Abs(c.Close - c.Open) }
func upperWick(c Candle) float64 {
	top := math.Max(c.Open, c.Close)
	return c.High - top
}
func lowerWick(c Candle) float64 {
	bot := math.Min(c.Open, c.Close)
	return bot - c.Low
}
func isBullish(c Candle) bool { return c.Close > c.Open }
func isBearish(c Candle) bool { return c.Close < c.Open }
func rng(c Candle) float64    { return c.High - c.Low }

// isDoji reports a near-zero body relative to the candle's range.
func isDoji(c Candle) bool {
	r := rng(c)
	if r == 0 {
		return true
	}
	return body(c)/r < 0.1
}

// ComputePatterns evaluates all 14 pattern booleans over c.
func ComputePatterns(c []Candle) Patterns {
	n := len(c)
	p := Patterns{
		Hammer:             make([]bool, n),
		InvertedHammer:     make([]bool, n),
		HangingMan:         make([]bool, n),
		ShootingStar:       make([]bool, n),
		ThreeWhiteSoldiers: make([]bool, n),
		ThreeBlackCrows:    make([]bool, n),
		Doji:               make([]bool, n),
		ThreeLineStrike:    make([]bool, n),
		TwoBlackGapping:    make([]bool, n),
		MorningStar:        make([]bool, n),
		EveningStar:        make([]bool, n),
		AbandonedBaby:      make([]bool, n),
		MorningDojiStar:    make([]bool, n),
		EveningDojiStar:    make([]bool, n),
	}
	for i := 0; i < n; i++ {
		cur := c[i]
		p.Doji[i] = isDoji(cur)

		// Hammer: small body near the top, long lower wick (>= 2x body),
		// little/no upper wick, in a downtrend (prior close falling).
		b := body(cur)
		if b > 0 && lowerWick(cur) >= 2*b && upperWick(cur) <= b {
			if i > 0 && cur.Close < c[i-1].Close {
				p.Hammer[i] = true
			}
		}
		// Inverted hammer: small body near bottom, long upper wick, in a downtrend.
		if b > 0 && upperWick(cur) >= 2*b && lowerWick(cur) <= b {
			if i > 0 && cur.Close < c[i-1].Close {
				p.InvertedHammer[i] = true
			}
			// Hanging man / shooting star: same shapes but in an uptrend.
		}
		if b > 0 && lowerWick(cur) >= 2*b && upperWick(cur) <= b {
			if i > 0 && cur.Close > c[i-1].Close {
				p.HangingMan[i] = true
			}
		}
		if b > 0 && upperWick(cur) >= 2*b && lowerWick(cur) <= b {
			if i > 0 && cur.Close > c[i-1].Close {
				p.ShootingStar[i] = true
			}
		}

		if i >= 2 {
			a, bb, cc := c[i-2], c[i-1], cur
			// Three white soldiers: three consecutive bullish candles,
			// each closing higher than the last, small upper wicks.
			if isBullish(a) && isBullish(bb) && isBullish(cc) &&
				bb.Close > a.Close && cc.Close > bb.Close &&
				bb.Open > a.Open && cc.Open > bb.Open {
				p.ThreeWhiteSoldiers[i] = true
			}
			// Three black crows: the mirror image.
			if isBearish(a) && isBearish(bb) && isBearish(cc) &&
				bb.Close < a.Close && cc.Close < bb.Close &&
				bb.Open < a.Open && cc.Open < bb.Open {
				p.ThreeBlackCrows[i] = true
			}
			// Three line strike: three same-direction candles followed by a
			// fourth that engulfs all three (needs i>=3).
		}
		if i >= 3 {
			a, bb, cc, d := c[i-3], c[i-2], c[i-1], cur
			if isBullish(a) && isBullish(bb) && isBullish(cc) &&
				bb.Close > a.Close && cc.Close > bb.Close &&
				isBearish(d) && d.Open > cc.Close && d.Close < a.Open {
				p.ThreeLineStrike[i] = true
			}
			if isBearish(a) && isBearish(bb) && isBearish(cc) &&
				bb.Close < a.Close && cc.Close < bb.Close &&
				isBullish(d) && d.Open < cc.Close && d.Close > a.Open {
				p.ThreeLineStrike[i] = true
			}
		}
		if i >= 1 {
			prev := c[i-1]
			// Two black gapping: two consecutive bearish candles, the second
			// opening with a down-gap from the first's close.
			if isBearish(prev) && isBearish(cur) && cur.Open < prev.Close && cur.High < prev.Low {
				p.TwoBlackGapping[i] = true
			}
		}
		if i >= 2 {
			a, bb, cc := c[i-2], c[i-1], cur
			// Morning star: bearish, small-bodied middle (gap down), bullish
			// closing back into the first candle's body.
			if isBearish(a) && body(bb) < body(a)*0.5 && bb.High < a.Close &&
				isBullish(cc) && cc.Close > (a.Open+a.Close)/2 {
				p.MorningStar[i] = true
				if isDoji(bb) {
					p.MorningDojiStar[i] = true
				}
			}
			// Evening star: the mirror image.
			if isBullish(a) && body(bb) < body(a)*0.5 && bb.Low > a.Close &&
				isBearish(cc) && cc.Close < (a.Open+a.Close)/2 {
				p.EveningStar[i] = true
				if isDoji(bb) {
					p.EveningDojiStar[i] = true
				}
			}
			// Abandoned baby: like morning/evening star but the middle candle
			// gaps away from BOTH neighbors (a doji island).
			if isBearish(a) && isDoji(bb) && bb.High < a.Close &&
				isBullish(cc) && cc.Low > bb.High {
				p.AbandonedBaby[i] = true
			}
			if isBullish(a) && isDoji(bb) && bb.Low > a.Close &&
				isBearish(cc) && cc.High < bb.Low {
				p.AbandonedBaby[i] = true
			}
		}
	}
	return p
}

// DetectedAt returns the names of every pattern flagged true at row i, for
// logging/notification only — pattern detection informs the operator, it
// does not gate any BUY/SELL decision.
func (p Patterns) DetectedAt(i int) []string {
	var names []string
	check := func(flagged bool, name string) {
		if flagged {
			names = append(names, name)
		}
	}
	at := func(s []bool) bool { return i >= 0 && i < len(s) && s[i] }
	check(at(p.Hammer), "hammer")
	check(at(p.InvertedHammer), "inverted_hammer")
	check(at(p.HangingMan), "hanging_man")
	check(at(p.ShootingStar), "shooting_star")
	check(at(p.ThreeWhiteSoldiers), "three_white_soldiers")
	check(at(p.ThreeBlackCrows), "three_black_crows")
	check(at(p.Doji), "doji")
	check(at(p.ThreeLineStrike), "three_line_strike")
	check(at(p.TwoBlackGapping), "two_black_gapping")
	check(at(p.MorningStar), "morning_star")
	check(at(p.EveningStar), "evening_star")
	check(at(p.AbandonedBaby), "abandoned_baby")
	check(at(p.MorningDojiStar), "morning_doji_star")
	check(at(p.EveningDojiStar), "evening_doji_star")
	return names
}
