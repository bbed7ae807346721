package utils

func HasBit(n byte, pos uint) bool {
	return n&(1<<pos) > 0
}

func SetBit(n *byte, pos uint) {
	*n |= 1 << pos
}

func ClearBit(n *byte, pos uint) {
	*n &= ^byte(1 << pos)
}
