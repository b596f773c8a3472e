package amqptransport

import "github.com/gtalis/openscreen/internal/availability"

func logChannelPoolGet(logger availability.Logger, remaining int, err error) {
	if !logger.IsDebug() {
		return
	}
	if err != nil {
		logger.Log("channel pool get (remaining: %d): %s", remaining, err)
	} else {
		logger.Log("channel pool get (remaining: %d)", remaining)
	}
}

func logChannelPoolPut(logger availability.Logger, remaining int, err error) {
	if !logger.IsDebug() {
		return
	}
	if err != nil {
		logger.Log("channel pool put (remaining: %d): %s", remaining, err)
	} else {
		logger.Log("channel pool put (remaining: %d)", remaining)
	}
}

func logChannelPoolCleanup(logger availability.Logger, remaining int, err error) {
	if !logger.IsDebug() {
		return
	}
	if err != nil {
		logger.Log("channel pool cleanup (remaining: %d): %s", remaining, err)
	} else {
		logger.Log("channel pool cleanup (remaining: %d)", remaining)
	}
}

func logChannelPoolStart(logger availability.Logger, size int) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("channel pool started (size: %d)", size)
}

func logChannelPoolGraceful(logger availability.Logger, remaining int) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("channel pool stopped gracefully (remaining: %d)", remaining)
}

func logChannelPoolStop(logger availability.Logger, remaining int, err error) {
	if !logger.IsDebug() {
		return
	}
	if err == nil {
		logger.Log("channel pool stopped (remaining: %d)", remaining)
	} else {
		logger.Log("channel pool stopped (remaining: %d): %s", remaining, err)
	}
}

func logGatewayConnect(logger availability.Logger, endpoint string, endpointID uint64) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("amqp transport connecting to %s (endpoint id %d)", endpoint, endpointID)
}

func logGatewayConnectFailed(logger availability.Logger, endpoint string, err error) {
	logger.Log("amqp transport failed to connect to %s: %s", endpoint, err)
}

func logDemuxerBind(logger availability.Logger, endpointID uint64, refs uint) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("amqp demultiplexer bound endpoint %d (refs: %d)", endpointID, refs)
}

func logDemuxerUnbind(logger availability.Logger, endpointID uint64, refs uint) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("amqp demultiplexer unbound endpoint %d (refs: %d)", endpointID, refs)
}

func logDemuxerRejected(logger availability.Logger, endpointID uint64, err error) {
	logger.Log("amqp demultiplexer rejected delivery for endpoint %d: %s", endpointID, err)
}

func logDemuxerUnroutable(logger availability.Logger, endpointID uint64, msgType int) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("amqp demultiplexer has no watcher for endpoint %d message type %d", endpointID, msgType)
}
