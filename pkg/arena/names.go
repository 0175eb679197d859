package arena

import (
	"fmt"
	"math/rand"
)

// namePools holds the display-name pool for each class. A roster draws each
// name at most once.
var namePools = map[Class][]string{
	ClassWarrior:  {"KRATOS", "VALKYRA", "BLOODFANG", "IRONMAW", "SKARN", "GRIMHILDE", "AXEL", "THORGRIM"},
	ClassTrader:   {"MIDAS", "LEDGERLORD", "VIGRID", "ARBITRA", "GOLDWEAVE", "TICKER", "SPREAD", "BASIS"},
	ClassSurvivor: {"HOLDFAST", "BULWARK", "WREN", "EVERGREEN", "STONEWALL", "PATIENCE", "MOSS", "TORTUGA"},
	ClassParasite: {"LEECHLING", "TAPEWORM", "REMORA", "MISTLETOE", "SAPSUCKER", "LAMPREY", "TICK", "CUCKOO"},
	ClassGambler:  {"DICEGHOST", "SNAKE_EYES", "MARTINGALE", "WILDCARD", "JACKPOT", "LONGSHOT", "ROULETTA", "ALLINA"},
}

// DrawName picks a name from the class pool that is not already taken,
// marking it as used. Falls back to a numbered class tag if the pool is
// exhausted.
func DrawName(rng *rand.Rand, class Class, taken map[string]bool) string {
	pool := namePools[class]
	for _, i := range rng.Perm(len(pool)) {
		if !taken[pool[i]] {
			taken[pool[i]] = true
			return pool[i]
		}
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s_%d", class, i)
		if !taken[name] {
			taken[name] = true
			return name
		}
	}
}
