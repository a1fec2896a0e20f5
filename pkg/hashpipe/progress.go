package hashpipe

// HashProgress is one progress event from the hashing stage, reported
// per spec §4.2: first chunk (0 bytes), every >=1% of total_bytes
// advance (or every 64 KiB for totals under 64 KiB), and the final
// event where BytesProcessed == TotalBytes.
type HashProgress struct {
	Algorithm      string
	BytesProcessed int64
	TotalBytes     int64
}

const smallFileFallback = 64 << 10

// progressCadence decides, from the last-reported byte offset and the
// total file size, whether the current offset warrants a new progress
// event. It keeps the last reported offset itself; shouldReport
// updates it whenever it reports.
type progressCadence struct {
	totalBytes int64
	stepBytes  int64
	reported   int64
	any        bool
}

func newProgressCadence(totalBytes int64) *progressCadence {
	step := totalBytes / 100
	if totalBytes < smallFileFallback {
		step = smallFileFallback
	}
	if step <= 0 {
		step = 1
	}
	return &progressCadence{totalBytes: totalBytes, stepBytes: step}
}

// shouldReport reports whether `processed` bytes warrants a new event,
// and records that it did.
func (c *progressCadence) shouldReport(processed int64) bool {
	if !c.any {
		c.any = true
		c.reported = processed
		return true // first chunk, including the 0-byte start event
	}
	if processed >= c.totalBytes {
		c.reported = processed
		return true // final 100% event, always reported
	}
	if processed-c.reported >= c.stepBytes {
		c.reported = processed
		return true
	}
	return false
}

// progressSink is a bounded fan-out for HashProgress events. When the
// channel is full, the oldest buffered intermediate update may be
// dropped to keep producers from blocking on a slow renderer, but the
// terminal 100% event is always delivered — sent with a blocking send
// on the same channel, so the producer waits for a slow consumer to make
// room instead of dropping it.
type progressSink struct {
	ch chan HashProgress
}

func newProgressSink(buffer int) *progressSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &progressSink{ch: make(chan HashProgress, buffer)}
}

// Chan exposes the event stream for consumers to range over.
func (s *progressSink) Chan() <-chan HashProgress { return s.ch }

// send delivers an event, dropping the oldest buffered one if the
// channel is full — unless this is the final event for its algorithm,
// in which case the send blocks until room is available so it is never
// lost.
func (s *progressSink) send(ev HashProgress) {
	final := ev.BytesProcessed >= ev.TotalBytes
	if !final {
		select {
		case s.ch <- ev:
			return
		default:
			select {
			case <-s.ch: // drop oldest
			default:
			}
			select {
			case s.ch <- ev:
			default:
				// still full with the newest update taken by a racing
				// consumer; drop this intermediate event.
			}
			return
		}
	}
	s.ch <- ev
}

func (s *progressSink) close() { close(s.ch) }
