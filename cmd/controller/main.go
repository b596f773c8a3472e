// Command controller runs the availability controller against a single
// AMQP broker, watching a fixed set of receivers for URL availability.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/streadway/amqp"

	"github.com/gtalis/openscreen/internal/amqptransport"
	"github.com/gtalis/openscreen/internal/clock"
	"github.com/gtalis/openscreen/internal/discovery"
	"github.com/gtalis/openscreen/internal/ident"
	"github.com/gtalis/openscreen/internal/wire"
	"github.com/gtalis/openscreen/openscreen"
)

func main() {
	var (
		dsn      = flag.String("broker", "amqp://localhost", "AMQP broker URL")
		poolSize = flag.Uint("pool-size", amqptransport.DefaultPoolSize, "channel pool size")
		debug    = flag.Bool("debug", false, "enable debug logging")
		receiver receiverList
	)
	flag.Var(&receiver, "receiver", "receiver as serviceID=endpoint, may be repeated")
	flag.Parse()

	if len(receiver) == 0 {
		fmt.Fprintln(os.Stderr, "controller: at least one -receiver is required")
		os.Exit(2)
	}

	logger := openscreen.NewLogger(*debug)

	broker, err := amqp.Dial(*dsn)
	if err != nil {
		panic(err)
	}
	defer broker.Close()

	gateway, err := amqptransport.NewGateway(broker, *poolSize, logger)
	if err != nil {
		panic(err)
	}

	coord := openscreen.NewCoordinator(openscreen.Config{
		Clock:     clock.Real{},
		Transport: gateway,
		Demuxer:   gateway,
		Codec:     wire.NewCodec(),
		Logger:    logger,
	})
	defer coord.Stop()

	if err := coord.ListenDiscovery(discovery.NewStaticSource(receiver...)); err != nil {
		panic(err)
	}

	go refreshLoop(coord)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	select {
	case sig := <-signals:
		logger.Log("controller: received signal %s", sig)
		coord.GracefulStop()
		<-coord.Done()
	case <-coord.Done():
	}

	if err := coord.Err(); err != nil {
		panic(err)
	}
}

// refreshLoop drives periodic watch renewal: RefreshWatches reports how
// long to wait before calling it again, so the loop resets its timer to
// that delay every cycle rather than polling on a fixed interval.
func refreshLoop(coord *openscreen.Coordinator) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			next, err := coord.RefreshWatches()
			if err != nil {
				return
			}
			timer.Reset(next)
		case <-coord.Done():
			return
		}
	}
}

// receiverList collects repeated -receiver flags of the form
// serviceID=endpoint into discovery.ServiceInfo values.
type receiverList []discovery.ServiceInfo

func (l *receiverList) String() string {
	parts := make([]string, len(*l))
	for i, info := range *l {
		parts[i] = fmt.Sprintf("%s=%s", info.ServiceID, info.Endpoint)
	}
	return strings.Join(parts, ",")
}

func (l *receiverList) Set(v string) error {
	serviceID, endpoint, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("controller: malformed -receiver %q, want serviceID=endpoint", v)
	}

	id := ident.ServiceID(serviceID)
	if err := id.Validate(); err != nil {
		return fmt.Errorf("controller: -receiver %q: %w", v, err)
	}

	*l = append(*l, discovery.ServiceInfo{ServiceID: id, Endpoint: endpoint})
	return nil
}
