package types

type SampleRate uint32

type Channel uint32

type EncodingPCM struct {
	PCMFormat  PCMFormat
	SampleRate SampleRate
}

func (e EncodingPCM) BytesPerSample() uint {
	return e.PCMFormat.Size()
}

// BitDepth returns the amount of bits per sample of one channel.
func (e EncodingPCM) BitDepth() int {
	return int(e.PCMFormat.Size()) * 8
}
