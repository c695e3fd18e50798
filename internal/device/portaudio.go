package device

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"github.com/cwbudde/micmon/internal/engine"
)

// Backend is the PortAudio implementation of engine.Backend. Create it
// with Open and release it with Close.
type Backend struct {
	logger *slog.Logger
}

// Open initializes PortAudio.
func Open(logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, &Error{Op: "initialize", Err: err}
	}
	logger.Debug("portaudio initialized", "version", portaudio.VersionText())
	return &Backend{logger: logger}, nil
}

// Close terminates PortAudio.
func (b *Backend) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return &Error{Op: "terminate", Err: err}
	}
	return nil
}

// Devices lists all devices with their host API and defaults marked.
func (b *Backend) Devices() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &Error{Op: "list devices", Err: err}
	}

	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	out := make([]Info, len(devices))
	for i, d := range devices {
		out[i] = infoFrom(d, defIn, defOut)
	}
	return out, nil
}

func infoFrom(d, defIn, defOut *portaudio.DeviceInfo) Info {
	info := Info{
		Index:             d.Index,
		Name:              d.Name,
		MaxInputChannels:  d.MaxInputChannels,
		MaxOutputChannels: d.MaxOutputChannels,
		DefaultSampleRate: d.DefaultSampleRate,
		LowInputLatency:   d.DefaultLowInputLatency,
		LowOutputLatency:  d.DefaultLowOutputLatency,
		DefaultInput:      defIn != nil && defIn.Index == d.Index,
		DefaultOutput:     defOut != nil && defOut.Index == d.Index,
	}
	if d.HostApi != nil {
		info.HostAPI = d.HostApi.Name
	}
	return info
}

func (b *Backend) resolve(selector string, dir Direction) (*portaudio.DeviceInfo, error) {
	infos, err := b.Devices()
	if err != nil {
		return nil, err
	}
	picked, err := Select(infos, selector, dir)
	if err != nil {
		return nil, err
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &Error{Op: "list devices", Err: err}
	}
	for _, d := range devices {
		if d.Index == picked.Index {
			return d, nil
		}
	}
	return nil, &Error{Op: "select " + dir.String(), Device: selector, Err: errNoMatch}
}

// OpenDuplex opens a mono low-latency stream from the selected input to
// the selected output with one callback per block.
func (b *Backend) OpenDuplex(params engine.StreamParams, cb engine.Callback) (engine.Stream, error) {
	in, err := b.resolve(params.InputDevice, Input)
	if err != nil {
		return nil, err
	}
	out, err := b.resolve(params.OutputDevice, Output)
	if err != nil {
		return nil, err
	}

	p := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: 1,
			Latency:  in.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: 1,
			Latency:  out.DefaultLowOutputLatency,
		},
		SampleRate:      params.SampleRate,
		FramesPerBuffer: params.BlockSize,
		Flags:           portaudio.ClipOff,
	}

	s, err := portaudio.OpenStream(p, func(in, out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		cb(in, out, statusFrom(flags))
	})
	if err != nil {
		return nil, &Error{
			Op:     "open duplex stream",
			Device: fmt.Sprintf("%s -> %s", in.Name, out.Name),
			Err:    err,
		}
	}

	return b.wrap(s, in.Name, out.Name), nil
}

// OpenCapture opens a mono input-only stream.
func (b *Backend) OpenCapture(params engine.StreamParams, cb engine.CaptureCallback) (engine.Stream, error) {
	in, err := b.resolve(params.InputDevice, Input)
	if err != nil {
		return nil, err
	}

	p := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: 1,
			Latency:  in.DefaultHighInputLatency,
		},
		SampleRate:      params.SampleRate,
		FramesPerBuffer: params.BlockSize,
	}

	s, err := portaudio.OpenStream(p, func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		cb(in, statusFrom(flags))
	})
	if err != nil {
		return nil, &Error{Op: "open capture stream", Device: in.Name, Err: err}
	}

	return b.wrap(s, in.Name, ""), nil
}

func (b *Backend) wrap(s *portaudio.Stream, inName, outName string) *stream {
	st := &stream{s: s, name: inName}
	st.info = engine.StreamInfo{InputDevice: inName, OutputDevice: outName}
	if pi := s.Info(); pi != nil {
		st.info.SampleRate = pi.SampleRate
		st.info.InputLatency = pi.InputLatency
		st.info.OutputLatency = pi.OutputLatency
	}
	return st
}

type stream struct {
	s    *portaudio.Stream
	name string
	info engine.StreamInfo
}

func (s *stream) Start() error {
	if err := s.s.Start(); err != nil {
		return &Error{Op: "start stream", Device: s.name, Err: err}
	}
	return nil
}

func (s *stream) Stop() error {
	if err := s.s.Stop(); err != nil {
		return &Error{Op: "stop stream", Device: s.name, Err: err}
	}
	return nil
}

func (s *stream) Close() error {
	if err := s.s.Close(); err != nil {
		return &Error{Op: "close stream", Device: s.name, Err: err}
	}
	return nil
}

func (s *stream) Info() engine.StreamInfo {
	return s.info
}

func statusFrom(flags portaudio.StreamCallbackFlags) engine.Status {
	var s engine.Status
	if flags&portaudio.InputUnderflow != 0 {
		s |= engine.InputUnderflow
	}
	if flags&portaudio.InputOverflow != 0 {
		s |= engine.InputOverflow
	}
	if flags&portaudio.OutputUnderflow != 0 {
		s |= engine.OutputUnderflow
	}
	if flags&portaudio.OutputOverflow != 0 {
		s |= engine.OutputOverflow
	}
	if flags&portaudio.PrimingOutput != 0 {
		s |= engine.PrimingOutput
	}
	return s
}
