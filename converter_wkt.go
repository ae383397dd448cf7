package osmextract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportCSV writes edges as semicolon-separated values with WKT geometry:
// source;target;name;weight;distance;class;forward;roundabout;geom
func ExportCSV(output OutputFiles, w io.Writer) error {
	nodes, err := ReadNodesFile(output.Nodes)
	if err != nil {
		return err
	}
	edges, err := ReadEdgesFile(output.Edges)
	if err != nil {
		return err
	}
	names, err := ReadNamesFile(output.Names)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err = writer.Write([]string{"source", "target", "name", "weight", "distance", "class", "forward", "roundabout", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for i, edge := range edges {
		if int(edge.Source) >= len(nodes) || int(edge.Target) >= len(nodes) {
			return errors.Errorf("Edge %d refers to missing node", i)
		}
		name, err := names.Name(edge.NameID)
		if err != nil {
			return errors.Wrapf(err, "Can't find name of edge %d", i)
		}
		geom := orb.LineString{nodes[edge.Source].Coordinate.Point(), nodes[edge.Target].Coordinate.Point()}
		err = writer.Write([]string{
			fmt.Sprintf("%d", edge.Source),
			fmt.Sprintf("%d", edge.Target),
			name,
			fmt.Sprintf("%d", edge.Weight),
			fmt.Sprintf("%f", edge.Distance),
			edge.Class.String(),
			fmt.Sprintf("%t", edge.Flags&EdgeForward != 0),
			fmt.Sprintf("%t", edge.Flags&EdgeRoundabout != 0),
			wkt.MarshalString(geom),
		})
		if err != nil {
			return errors.Wrapf(err, "Can't write edge %d", i)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush CSV")
}

// ExportCSVFile is ExportCSV into file
func ExportCSVFile(output OutputFiles, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "Can't create file '%s'", fname)
	}
	if err := ExportCSV(output, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
