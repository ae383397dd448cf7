package osmextract

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OutputFiles holds names of output files
type OutputFiles struct {
	Nodes        string
	Edges        string
	Restrictions string
	Names        string
}

// NewOutputFiles returns output file names derived from base name. E.g.: for 'map' files
// 'map.nodes', 'map.edges', 'map.restrictions' and 'map.names' will be produced
func NewOutputFiles(base string) OutputFiles {
	return OutputFiles{
		Nodes:        base + ".nodes",
		Edges:        base + ".edges",
		Restrictions: base + ".restrictions",
		Names:        base + ".names",
	}
}

// PrepareData is the single entry point of preparation: it flushes collected data,
// compacts nodes, normalizes edges, resolves restrictions and writes everything to disk.
// It has to be called exactly once
func (containers *ExtractionContainers) PrepareData(profile WayProfile, output OutputFiles) error {
	if containers.stage != stageCollecting {
		return ErrAlreadyPrepared
	}
	st := time.Now()
	if err := containers.FlushVectors(); err != nil {
		return err
	}
	if err := containers.PrepareNodes(); err != nil {
		return errors.Wrap(err, "Can't prepare nodes")
	}
	if err := containers.PrepareEdges(profile); err != nil {
		return errors.Wrap(err, "Can't prepare edges")
	}
	if err := containers.PrepareRestrictions(); err != nil {
		return errors.Wrap(err, "Can't prepare restrictions")
	}

	writers := []struct {
		path  string
		write func(sink RecordSink) error
	}{
		{output.Nodes, containers.WriteNodes},
		{output.Edges, containers.WriteEdges},
		{output.Restrictions, containers.WriteRestrictions},
		{output.Names, containers.WriteNames},
	}
	committed := make([]string, 0, len(writers))
	for _, w := range writers {
		err := writeFile(w.path, w.write)
		if err != nil {
			// output is valid only as a whole
			for _, path := range committed {
				os.Remove(path)
			}
			return containers.fail(errors.Wrapf(err, "Can't write file '%s'", w.path))
		}
		committed = append(committed, w.path)
	}
	containers.stage = stageWritten
	containers.stats.Names = containers.names.Len()

	containers.logger.WithFields(logrus.Fields{
		"stage":                      "prepare_data",
		"nodes":                      containers.stats.Nodes,
		"edges":                      containers.stats.Edges,
		"unconditional_restrictions": containers.stats.UnconditionalRestrictions,
		"conditional_restrictions":   containers.stats.ConditionalRestrictions,
		"names":                      containers.stats.Names,
	}).Infof("Done in %v", time.Since(st))
	return nil
}

func writeFile(path string, write func(sink RecordSink) error) error {
	fw, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	if err := write(fw); err != nil {
		fw.Abort()
		return err
	}
	return fw.Commit()
}
