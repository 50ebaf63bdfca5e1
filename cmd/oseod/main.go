package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/fulfilment"
	"github.com/earthsight/oseo-server/processor"
	"github.com/earthsight/oseo-server/server"
	"github.com/earthsight/oseo-server/services/csw"
)

var logger = config.RootLogger

func main() {
	cliParser := cli.NewApp()
	cliParser.Name = "oseod"
	cliParser.Usage = "earth observation product ordering server"
	cliParser.Version = "1.0"

	cliParser.Commands = []cli.Command{
		{
			Name:  "env",
			Usage: "Print the OSEO environment variables currently set",
			Action: func(ctx *cli.Context) error {
				printEnvironment()
				return nil
			},
		},
		{
			Name:  "approve",
			Usage: "Approve a submitted order by id, releasing its batches for fulfilment",
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "order",
					Usage: "Id of the order to approve.",
				},
			},
			Action: approveOrder,
		},
	}

	cliParser.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "conf",
			Usage: "Path to yaml configuration file.",
			Value: "oseod.yml",
		},
	}

	cliParser.Action = func(c *cli.Context) error {
		conf, err := config.NewAppConfiguration(c.String("conf"))
		if err != nil {
			return fmt.Errorf("loading configuration: %v", err)
		}
		return serve(conf)
	}

	if err := cliParser.Run(os.Args); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func serve(conf config.AppConfiguration) error {
	publisher, closePublisher, err := buildPublisher(conf.EventQueue)
	if err != nil {
		return err
	}
	defer closePublisher()

	d, dbID, err := dao.NewDataAccessLayer(conf.DatabaseConnection,
		dao.WithLogger(logger), dao.WithPublisher(publisher))
	if err != nil {
		return fmt.Errorf("connecting to database: %v", err)
	}
	logger.Info("database connected", zap.String("database", dbID))

	registry := processor.NewRegistry()
	registry.Register(processor.DirectoryProcessorName, processor.NewDirectoryProcessor)
	if err := registry.Configure(processor.DirectoryProcessorName, map[string]string{
		"root_dir": conf.Ordering.OnlineDataAccessHTTPRootDir,
	}); err != nil {
		return err
	}

	app, err := server.NewAppServer(conf)
	if err != nil {
		return fmt.Errorf("building server: %v", err)
	}
	app.RootDAO = d
	app.EventQueue = publisher
	app.Catalogue = csw.NewClient(csw.WithLogger(logger))
	app.Processors = registry

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := fulfilment.NewEngine(d, &conf.Ordering, conf.Fulfilment, registry, logger)
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(ctx) }()

	maintenance := fulfilment.NewMaintenance(d, conf.Fulfilment, registry, logger)
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("scheduling maintenance: %v", err)
	}
	defer maintenance.Stop()

	httpServer := &http.Server{Addr: app.Addr, Handler: app}
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	logger.Info("server starting", zap.String("addr", app.Addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-engineDone
	return nil
}

func buildPublisher(conf config.EventQueueConfiguration) (events.Publisher, func(), error) {
	if len(conf.Brokers) == 0 {
		return events.NullPublisher{}, func() {}, nil
	}
	producer, err := events.NewAsyncProducer(conf.Brokers, conf.Topic, events.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to kafka: %v", err)
	}
	return producer, func() { producer.Close() }, nil
}

func approveOrder(c *cli.Context) error {
	orderID := c.Int64("order")
	if orderID == 0 {
		return fmt.Errorf("an order id is required, pass --order")
	}
	conf, err := config.NewAppConfiguration(c.GlobalString("conf"))
	if err != nil {
		return fmt.Errorf("loading configuration: %v", err)
	}
	d, _, err := dao.NewDataAccessLayer(conf.DatabaseConnection, dao.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connecting to database: %v", err)
	}
	order, err := d.ApproveOrder(orderID)
	if err != nil {
		return fmt.Errorf("approving order %d: %v", orderID, err)
	}
	fmt.Printf("order %d approved, status %s, %d batch(es) queued\n",
		order.ID, order.Status, len(order.Batches))
	return nil
}

func printEnvironment() {
	var names []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "OSEO_") {
			names = append(names, kv)
		}
	}
	sort.Strings(names)
	for _, kv := range names {
		fmt.Println(kv)
	}
	if len(names) == 0 {
		fmt.Println("no OSEO_ environment variables set")
	}
}
