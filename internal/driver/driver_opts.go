package driver

import "time"

type WorldDriverOpt func(*WorldDriver)

func WithTickLength(tickLength time.Duration) WorldDriverOpt {
	return func(d *WorldDriver) {
		d.tickLength = tickLength
	}
}
