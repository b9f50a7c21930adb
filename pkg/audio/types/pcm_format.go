package types

import (
	"fmt"
	"math"
)

type PCMFormat uint

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatU8
	PCMFormatS8
	PCMFormatS16LE
	PCMFormatS16BE
	PCMFormatS24LE
	PCMFormatS24BE
	PCMFormatS32LE
	PCMFormatS32BE
	PCMFormatS64LE
	PCMFormatS64BE
	PCMFormatFloat32LE
	PCMFormatFloat32BE
	PCMFormatFloat64LE
	PCMFormatFloat64BE
	EndOfPCMFormat
)

// Size returns the size of one sample of one channel, in bytes.
func (f PCMFormat) Size() uint {
	switch f {
	case PCMFormatU8, PCMFormatS8:
		return 1
	case PCMFormatS16LE, PCMFormatS16BE:
		return 2
	case PCMFormatS24LE, PCMFormatS24BE:
		return 3
	case PCMFormatS32LE, PCMFormatS32BE, PCMFormatFloat32LE, PCMFormatFloat32BE:
		return 4
	case PCMFormatS64LE, PCMFormatS64BE, PCMFormatFloat64LE, PCMFormatFloat64BE:
		return 8
	default:
		return 0
	}
}

func (f PCMFormat) IsFloat() bool {
	switch f {
	case PCMFormatFloat32LE, PCMFormatFloat32BE, PCMFormatFloat64LE, PCMFormatFloat64BE:
		return true
	default:
		return false
	}
}

// FullScale returns the magnitude that corresponds to a full-scale
// signal in this format. It is 1 for float formats.
func (f PCMFormat) FullScale() float64 {
	switch f {
	case PCMFormatU8, PCMFormatS8:
		return 128
	case PCMFormatS16LE, PCMFormatS16BE:
		return 32768
	case PCMFormatS24LE, PCMFormatS24BE:
		return 8388608
	case PCMFormatS32LE, PCMFormatS32BE:
		return 2147483648
	case PCMFormatS64LE, PCMFormatS64BE:
		return math.Exp2(63)
	default:
		return 1
	}
}

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatUndefined:
		return "undefined"
	case PCMFormatU8:
		return "u8"
	case PCMFormatS8:
		return "s8"
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatS16BE:
		return "s16be"
	case PCMFormatS24LE:
		return "s24le"
	case PCMFormatS24BE:
		return "s24be"
	case PCMFormatS32LE:
		return "s32le"
	case PCMFormatS32BE:
		return "s32be"
	case PCMFormatS64LE:
		return "s64le"
	case PCMFormatS64BE:
		return "s64be"
	case PCMFormatFloat32LE:
		return "f32le"
	case PCMFormatFloat32BE:
		return "f32be"
	case PCMFormatFloat64LE:
		return "f64le"
	case PCMFormatFloat64BE:
		return "f64be"
	default:
		return fmt.Sprintf("unknown_format_%d", uint(f))
	}
}
