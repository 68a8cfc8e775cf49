package features

import (
    "math"

    "SignalForge/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(bars)-1, or nil if insufficient data.
func ComputeLogReturns(bars []models.Bar) []float64 {
    if len(bars) < 2 {
        return nil
    }
    out := make([]float64, 0, len(bars)-1)
    for i := 1; i < len(bars); i++ {
        prev := bars[i-1].Close
        cur := bars[i].Close
        if prev <= 0 || cur <= 0 {
            out = append(out, 0)
            continue
        }
        out = append(out, math.Log(cur/prev))
    }
    return out
}

// RealizedVolatility computes the sample stdev of the latest window of returns.
func RealizedVolatility(logReturns []float64, window int) float64 {
    if window <= 1 || len(logReturns) < window {
        return 0
    }
    sum := 0.0
    sum2 := 0.0
    for i := len(logReturns) - window; i < len(logReturns); i++ {
        r := logReturns[i]
        sum += r
        sum2 += r * r
    }
    n := float64(window)
    mean := sum / n
    variance := (sum2 - n*mean*mean) / (n - 1)
    if variance < 0 {
        variance = 0
    }
    return math.Sqrt(variance)
}

// TrailingAvgVolume averages the volume of up to window bars preceding the last bar.
// Returns 0 when there is no history.
func TrailingAvgVolume(bars []models.Bar, window int) float64 {
    if len(bars) < 2 || window <= 0 {
        return 0
    }
    end := len(bars) - 1
    start := end - window
    if start < 0 {
        start = 0
    }
    sum := 0.0
    for _, b := range bars[start:end] {
        sum += b.Volume
    }
    return sum / float64(end-start)
}

// PctChange returns (to-from)/from in percent, 0 when from is not positive.
func PctChange(from, to float64) float64 {
    if from <= 0 {
        return 0
    }
    return (to - from) / from * 100
}

// Streak returns +1 when the last n bars all closed up, -1 when all closed down, 0 otherwise.
func Streak(bars []models.Bar, n int) int {
    if n <= 0 || len(bars) < n {
        return 0
    }
    up, down := 0, 0
    for _, b := range bars[len(bars)-n:] {
        switch {
        case b.Close > b.Open:
            up++
        case b.Close < b.Open:
            down++
        }
    }
    switch {
    case up == n:
        return 1
    case down == n:
        return -1
    }
    return 0
}

// EMA returns the exponential moving average series seeded with the first value.
func EMA(values []float64, period int) []float64 {
    if len(values) == 0 || period <= 0 {
        return nil
    }
    k := 2.0 / float64(period+1)
    out := make([]float64, len(values))
    out[0] = values[0]
    for i := 1; i < len(values); i++ {
        out[i] = values[i]*k + out[i-1]*(1-k)
    }
    return out
}

// EfficiencyRatio is |net change| / sum of |bar changes| over the last window closes.
// 1 means a straight line, values near 0 mean chop.
func EfficiencyRatio(closes []float64, window int) float64 {
    if window < 2 || len(closes) < window {
        return 0
    }
    seg := closes[len(closes)-window:]
    path := 0.0
    for i := 1; i < len(seg); i++ {
        path += math.Abs(seg[i] - seg[i-1])
    }
    if path == 0 {
        return 0
    }
    return math.Abs(seg[len(seg)-1]-seg[0]) / path
}

// Closes extracts close prices.
func Closes(bars []models.Bar) []float64 {
    out := make([]float64, len(bars))
    for i, b := range bars {
        out[i] = b.Close
    }
    return out
}
