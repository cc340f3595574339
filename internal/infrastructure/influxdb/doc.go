// Package influxdb records shot and status history in InfluxDB v2.
//
// Every classified shot becomes a point in the "shot" measurement, tagged by
// site, mode, confidence setting, ball position and outcome, so acceptance
// rates can be charted per bay. Status transitions from the event bus go to
// "status_event".
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time-series history
//	}
//
// Writes are batched and non-blocking (batch_size, flush_interval).
package influxdb
