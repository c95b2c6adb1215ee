package geo

// Marker is a participant position to be grouped on the map.
type Marker struct {
	ID string
	Point
}

// Cluster is a group of markers with their arithmetic-mean centroid.
type Cluster struct {
	Centroid Point
	Members  []Marker
}

// ClusterMarkers groups markers with a single greedy pass: each marker
// joins the first existing cluster (in creation order) whose current
// centroid lies within radius meters, and the centroid is recomputed as
// the mean of all members after every join; otherwise the marker seeds
// a new singleton cluster.
//
// This is intentionally approximate and order-dependent: the centroid
// drifts as members join, so the result is not an exact
// nearest-cluster assignment. For route groups of a few dozen markers
// the O(n*k) pass is cheap and the drift is invisible at map zoom
// levels. Markers with unknown positions are skipped.
func ClusterMarkers(markers []Marker, radius float64) []Cluster {
	var clusters []Cluster

	for _, m := range markers {
		if !m.Known() {
			continue
		}

		joined := false
		for i := range clusters {
			d, ok := Distance(clusters[i].Centroid, m.Point)
			if !ok || d > radius {
				continue
			}
			clusters[i].Members = append(clusters[i].Members, m)
			clusters[i].Centroid = centroid(clusters[i].Members)
			joined = true
			break
		}
		if !joined {
			clusters = append(clusters, Cluster{
				Centroid: m.Point,
				Members:  []Marker{m},
			})
		}
	}

	return clusters
}

func centroid(members []Marker) Point {
	var lat, lng float64
	for _, m := range members {
		lat += m.Lat
		lng += m.Lng
	}
	n := float64(len(members))
	return Point{Lat: lat / n, Lng: lng / n}
}
