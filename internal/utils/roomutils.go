package utils

import (
	"math/rand"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GetRandomRoomCode(size int) string {
	r := make([]byte, size)
	for i := 0; i < size; i += 1 {
		r[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(r)
}
