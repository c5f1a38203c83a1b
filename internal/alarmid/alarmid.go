// Package alarmid generates the short random identifiers that tag alarm
// entries in the shared crontab. An identifier is four characters drawn
// without repetition from [A-Za-z0-9], unique among the identifiers the
// caller currently knows about.
//
// No registry of issued identifiers is kept here. Callers must pass the
// set of identifiers from a fresh crontab listing; between that listing
// and the subsequent write there is a race window against concurrent
// creators, which is accepted for single-operator use.
package alarmid

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of characters in a generated identifier.
const Length = 4

// Generate returns a fresh identifier not present in excluded.
func Generate(excluded map[string]struct{}) string {
	for {
		id := sample()
		if _, taken := excluded[id]; !taken {
			return id
		}
	}
}

// sample draws Length distinct characters from the alphabet.
func sample() string {
	letters := []byte(alphabet)
	out := make([]byte, Length)
	for i := 0; i < Length; i++ {
		j := randIndex(len(letters) - i)
		out[i] = letters[j]
		// Swap the chosen character out of the remaining pool.
		letters[j], letters[len(letters)-1-i] = letters[len(letters)-1-i], letters[j]
	}
	return string(out)
}

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the platform's entropy source is broken;
		// nothing sensible to fall back to.
		panic(err)
	}
	return int(v.Int64())
}
