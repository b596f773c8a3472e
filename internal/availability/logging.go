package availability

import "github.com/gtalis/openscreen/internal/ident"

func logCoordinatorStop(logger Logger, receivers int, err error) {
	if err == nil {
		logger.Log("availability coordinator stopped (receivers: %d)", receivers)
	} else {
		logger.Log("availability coordinator stopped (receivers: %d): %s", receivers, err)
	}
}

func logReceiverConnected(logger Logger, serviceID ident.ServiceID) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("receiver %s connected", serviceID.ShortString())
}

func logReceiverFailed(logger Logger, serviceID ident.ServiceID, failedURLs int) {
	logger.Log("receiver %s failed to connect, failing %d url(s)", serviceID.ShortString(), failedURLs)
}

func logReceiverTeardown(logger Logger, serviceID ident.ServiceID) {
	if !logger.IsDebug() {
		return
	}
	logger.Log("receiver %s torn down", serviceID.ShortString())
}

func logReceiverDisconnectFailed(logger Logger, serviceID ident.ServiceID, err error) {
	logger.Log("receiver %s failed to close connection: %s", serviceID.ShortString(), err)
}

func logWatchRefresh(logger Logger, serviceID ident.ServiceID, refreshedURLs int) {
	if !logger.IsDebug() || refreshedURLs == 0 {
		return
	}
	logger.Log("receiver %s refreshing %d url(s)", serviceID.ShortString(), refreshedURLs)
}
