package game

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
)

const (
	roomCodeLength = 6
	// no I, O, 0 or 1
	roomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type roomCodes struct{}

func NewRoomCodeGenerator() CodeGenerator {
	return roomCodes{}
}

func (roomCodes) Generate() string {
	code := make([]byte, roomCodeLength)
	for i := range roomCodeLength {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeChars))))
		if err != nil {
			code[i] = roomCodeChars[mrand.IntN(len(roomCodeChars))]
			continue
		}
		code[i] = roomCodeChars[n.Int64()]
	}
	return string(code)
}
