package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/LdDl/osmextract"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	osmFileName  = flag.String("file", "my_graph.osm.pbf", "Filename of *.osm.pbf or *.osm file")
	out          = flag.String("out", "my_graph", "Base name of output files. E.g.: if base name is 'map' then 4 files will be produced: 'map.nodes', 'map.edges', 'map.restrictions', 'map.names'")
	tempDir      = flag.String("tmp", os.TempDir(), "Directory for temporary spill files")
	memoryLimit  = flag.Int("mem", osmextract.DEFAULT_MEMORY_LIMIT, "Number of elements of every staging sequence kept in memory")
	bufferSize   = flag.Int("buffer", osmextract.DEFAULT_BUFFER_SIZE, "Size of per-worker buffers")
	workers      = flag.Int("workers", runtime.NumCPU(), "Number of parsing workers")
	agentStr     = flag.String("agent", "auto", "Agent type of routing profile. Expected values: auto / bike / walk")
	tieBreakStr  = flag.String("tie-break", "drop", "Policy for via-way restrictions when from-way touches both ends of via-way. Expected values: drop / first / last")
	geojsonFname = flag.String("geojson", "", "If provided, GeoJSON representation of output will be written to this file")
	csvFname     = flag.String("csv", "", "If provided, edges with WKT geometry will be written to this file")
	metricsFname = flag.String("metrics", "", "If provided, counters of run will be written to this file in Prometheus text format")
	verbose      = flag.Bool("verbose", true, "Print progress information")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	if !*verbose {
		logger.SetLevel(logrus.WarnLevel)
	}
	// run returns so deferred cleanup happens before exit
	if err := run(logger); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func run(logger *logrus.Logger) error {
	agent := osmextract.ParseAgentType(*agentStr)
	if agent == osmextract.AGENT_UNDEFINED {
		return errors.Errorf("Unknown agent type '%s'", *agentStr)
	}
	tieBreak, err := osmextract.ParseViaWayTieBreak(*tieBreakStr)
	if err != nil {
		return err
	}

	containers, err := osmextract.NewExtractionContainers(
		osmextract.WithTempDir(*tempDir),
		osmextract.WithMemoryLimit(*memoryLimit),
		osmextract.WithBufferSize(*bufferSize),
		osmextract.WithViaWayTieBreak(tieBreak),
		osmextract.WithVerbose(*verbose),
		osmextract.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := containers.Close(); err != nil {
			logger.Warn(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := time.Now()
	err = osmextract.ReadOSMFile(ctx, *osmFileName, containers, *workers)
	if err != nil {
		return err
	}
	output := osmextract.NewOutputFiles(*out)
	err = containers.PrepareData(osmextract.NewAgentProfile(agent), output)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"nodes":        output.Nodes,
		"edges":        output.Edges,
		"restrictions": output.Restrictions,
		"names":        output.Names,
	}).Infof("Extraction done in %v", time.Since(st))

	if *metricsFname != "" {
		if err := osmextract.WriteStatsFile(containers.Stats(), *metricsFname); err != nil {
			return err
		}
	}
	if *geojsonFname != "" {
		if err := osmextract.ExportGeoJSONFile(output, *geojsonFname); err != nil {
			return err
		}
	}
	if *csvFname != "" {
		if err := osmextract.ExportCSVFile(output, *csvFname); err != nil {
			return err
		}
	}
	return nil
}
