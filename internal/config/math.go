package config

import "math"

func ln1p(x float64) float64 {
	return math.Log1p(x)
}
