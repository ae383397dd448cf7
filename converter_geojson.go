package osmextract

import (
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ExportGeoJSON renders written nodes and edges as GeoJSON FeatureCollection:
// points for flagged nodes (barriers and traffic signals) and linestrings for edges
func ExportGeoJSON(output OutputFiles, w io.Writer) error {
	collection, err := prepareFeatureCollection(output)
	if err != nil {
		return err
	}
	b, err := collection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal feature collection")
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "Can't write feature collection")
}

// ExportGeoJSONFile is ExportGeoJSON into file
func ExportGeoJSONFile(output OutputFiles, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "Can't create file '%s'", fname)
	}
	if err := ExportGeoJSON(output, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func prepareFeatureCollection(output OutputFiles) (*geojson.FeatureCollection, error) {
	nodes, err := ReadNodesFile(output.Nodes)
	if err != nil {
		return nil, err
	}
	edges, err := ReadEdgesFile(output.Edges)
	if err != nil {
		return nil, err
	}
	names, err := ReadNamesFile(output.Names)
	if err != nil {
		return nil, err
	}
	collection := geojson.NewFeatureCollection()
	for i, node := range nodes {
		if !node.Barrier && !node.TrafficSignal {
			continue
		}
		pt := node.Coordinate.Point()
		feature := geojson.NewPointFeature([]float64{pt.Lon(), pt.Lat()})
		feature.SetProperty("id", i)
		feature.SetProperty("osm_id", int64(node.ID))
		feature.SetProperty("barrier", node.Barrier)
		feature.SetProperty("traffic_signal", node.TrafficSignal)
		collection.AddFeature(feature)
	}
	for i, edge := range edges {
		if int(edge.Source) >= len(nodes) || int(edge.Target) >= len(nodes) {
			return nil, errors.Errorf("Edge %d refers to missing node", i)
		}
		source := nodes[edge.Source].Coordinate.Point()
		target := nodes[edge.Target].Coordinate.Point()
		name, err := names.Name(edge.NameID)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't find name of edge %d", i)
		}
		feature := geojson.NewLineStringFeature([][]float64{{source.Lon(), source.Lat()}, {target.Lon(), target.Lat()}})
		feature.SetProperty("source", edge.Source)
		feature.SetProperty("target", edge.Target)
		feature.SetProperty("name", name)
		feature.SetProperty("weight", edge.Weight)
		feature.SetProperty("distance", edge.Distance)
		feature.SetProperty("class", edge.Class.String())
		feature.SetProperty("forward", edge.Flags&EdgeForward != 0)
		feature.SetProperty("roundabout", edge.Flags&EdgeRoundabout != 0)
		collection.AddFeature(feature)
	}
	return collection, nil
}
