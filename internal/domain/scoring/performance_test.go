package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollout/backend/internal/domain/rollout"
)

func delivery(class rollout.StoreClass, netDays, contract int, rework bool) CompletedDelivery {
	return CompletedDelivery{
		Class:        class,
		NetDays:      netDays,
		ContractDays: contract,
		HadRework:    rework,
		MonthlyValue: decimal.NewFromInt(500),
	}
}

func repeat(d CompletedDelivery, n int) []CompletedDelivery {
	out := make([]CompletedDelivery, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestRankOperators(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("Max weighted volume scores exactly 100", func(t *testing.T) {
		ranking := cfg.RankOperators([]OperatorWindow{
			{Operator: "ana", Completed: repeat(delivery(rollout.ClassMatriz, 60, 90, false), 10)},
			{Operator: "bruno", Completed: repeat(delivery(rollout.ClassFilial, 60, 90, false), 4)},
		})
		require.Len(t, ranking, 2)
		assert.Equal(t, "ana", ranking[0].Operator)
		assert.Equal(t, float64(100), ranking[0].Volume)
		assert.Equal(t, float64(28), ranking[1].Volume) // 2.8 / 10.0 * 100
	})

	t.Run("Strong operator strictly outranks weak one", func(t *testing.T) {
		// ana: 10 on-time Matriz deliveries, no rework.
		// bruno: 2 Filial deliveries, one late with rework.
		ana := OperatorWindow{
			Operator:  "ana",
			Completed: repeat(delivery(rollout.ClassMatriz, 60, 90, false), 10),
		}
		bruno := OperatorWindow{
			Operator: "bruno",
			Completed: []CompletedDelivery{
				delivery(rollout.ClassFilial, 70, 90, false),
				delivery(rollout.ClassFilial, 120, 90, true),
			},
		}
		ranking := cfg.RankOperators([]OperatorWindow{bruno, ana})
		require.Len(t, ranking, 2)
		assert.Equal(t, "ana", ranking[0].Operator)
		assert.Greater(t, ranking[0].Score, ranking[1].Score)
	})

	t.Run("Zero completed yields zero score but keeps WIP", func(t *testing.T) {
		ranking := cfg.RankOperators([]OperatorWindow{
			{Operator: "carla", InFlight: 7},
			{Operator: "ana", Completed: repeat(delivery(rollout.ClassMatriz, 60, 90, false), 3)},
		})
		require.Len(t, ranking, 2)
		last := ranking[1]
		assert.Equal(t, "carla", last.Operator)
		assert.Equal(t, float64(0), last.Score)
		assert.Equal(t, 7, last.InFlight)
	})

	t.Run("Ties keep insertion order", func(t *testing.T) {
		same := repeat(delivery(rollout.ClassMatriz, 60, 90, false), 5)
		ranking := cfg.RankOperators([]OperatorWindow{
			{Operator: "first", Completed: same},
			{Operator: "second", Completed: same},
		})
		require.Len(t, ranking, 2)
		assert.Equal(t, "first", ranking[0].Operator)
		assert.Equal(t, "second", ranking[1].Operator)
		assert.Equal(t, ranking[0].Score, ranking[1].Score)
	})

	t.Run("Low sample flag below ranking minimum", func(t *testing.T) {
		ranking := cfg.RankOperators([]OperatorWindow{
			{Operator: "ana", Completed: repeat(delivery(rollout.ClassMatriz, 60, 90, false), 4)},
			{Operator: "bruno", Completed: repeat(delivery(rollout.ClassMatriz, 60, 90, false), 5)},
		})
		byName := map[string]PerformanceScore{}
		for _, s := range ranking {
			byName[s.Operator] = s
		}
		assert.True(t, byName["ana"].LowSample)
		assert.False(t, byName["bruno"].LowSample)
	})

	t.Run("Empty input yields empty ranking", func(t *testing.T) {
		assert.Empty(t, cfg.RankOperators(nil))
	})
}

func TestEfficiencyScore(t *testing.T) {
	assert.Equal(t, float64(100), efficiencyScore(80, 90))
	assert.Equal(t, float64(100), efficiencyScore(90, 90))
	assert.Equal(t, float64(70), efficiencyScore(100, 90))
	assert.Equal(t, float64(40), efficiencyScore(120, 90))
	// degenerate inputs short-circuit instead of dividing by zero
	assert.Equal(t, float64(100), efficiencyScore(0, 90))
	assert.Equal(t, float64(100), efficiencyScore(90, 0))
}

func TestOnTime(t *testing.T) {
	assert.True(t, CompletedDelivery{NetDays: 90, ContractDays: 90}.OnTime())
	assert.False(t, CompletedDelivery{NetDays: 91, ContractDays: 90}.OnTime())
	// missing contract falls back to the 90-day default
	assert.True(t, CompletedDelivery{NetDays: 90}.OnTime())
	assert.False(t, CompletedDelivery{NetDays: 95}.OnTime())
}
