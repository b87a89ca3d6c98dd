package store

import (
	"context"
	"testing"
)

func TestCreateSession_UsesKeyGenerator(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a.Key != "key-1" || b.Key != "key-2" {
		t.Errorf("keys = %q, %q", a.Key, b.Key)
	}
	if a.ID == b.ID {
		t.Error("sessions share an id")
	}

	got, err := s.SessionByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != "key-2" || !got.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("SessionByID() = %+v, want %+v", got, b)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	if len(a) != 36 || a == b {
		t.Errorf("Generate() = %q, %q", a, b)
	}
}

func TestSessionKeyValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatal(err)
	}

	for _, kv := range []KeyValue{{"zeta", "1"}, {"alpha", "2"}, {"zeta", "3"}} {
		if err := s.SetSessionKeyValue(ctx, sess.ID, kv.Key, kv.Value); err != nil {
			t.Fatal(err)
		}
	}
	kvs, err := s.SessionKeyValues(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(kvs) != 2 || kvs[0] != (KeyValue{"alpha", "2"}) || kvs[1] != (KeyValue{"zeta", "3"}) {
		t.Errorf("SessionKeyValues() = %+v", kvs)
	}
}

func TestEndpointTypes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pkg := createTestPackage(t, s, "/zcl.yaml", PackageTypeMetadata)
	ids, err := s.InsertClusters(ctx, pkg, []Cluster{{Code: 6, Label: "OnOff"}})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.InsertEndpointType(ctx, sess.ID, EndpointType{
		Name: "Light",
		Clusters: []EndpointTypeCluster{
			{ClusterID: ids[0], Code: 6, Name: "OnOff", Side: "server", Enabled: true},
			{Code: 0x9999, Name: "Unknown", Side: "client"},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertEndpointType(ctx, sess.ID, EndpointType{Name: "Empty"}); err != nil {
		t.Fatal(err)
	}

	types, err := s.EndpointTypes(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 2 {
		t.Fatalf("got %d endpoint types", len(types))
	}
	light := types[0]
	if light.Name != "Light" || len(light.Clusters) != 2 {
		t.Fatalf("light = %+v", light)
	}
	if !light.Clusters[0].Enabled || light.Clusters[0].ClusterID != ids[0] {
		t.Errorf("first cluster = %+v", light.Clusters[0])
	}
	if light.Clusters[1].ClusterID != 0 || light.Clusters[1].Enabled {
		t.Errorf("unknown cluster = %+v", light.Clusters[1])
	}
	if len(types[1].Clusters) != 0 {
		t.Errorf("empty endpoint type has %d clusters", len(types[1].Clusters))
	}
}
