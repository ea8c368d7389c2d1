// Package jitter добавляет случайность к интервалам повторных попыток,
// чтобы одновременные очистки не били в хранилище синхронно.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает продолжительность с применённым джиттером.
// Результат находится в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	return DurationWithRand(d, jitterFactor, rand.Float64)
}

// DurationWithRand то же, что Duration, но с заданным источником случайных чисел в [0, 1).
func DurationWithRand(d time.Duration, jitterFactor float64, float func() float64) time.Duration {
	if d <= 0 || jitterFactor <= 0 {
		return d
	}
	return d + time.Duration(float()*jitterFactor*float64(d))
}

// ExponentialBackoff вычисляет задержку перед попыткой attempt (с нуля):
// base*2^attempt, но не больше max, плюс джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			backoff = max
			break
		}
	}
	return Duration(backoff, jitterFactor)
}
