// Generates sample parquet files for trying out parqview by hand:
//
//	cd testdata && go run generate.go
//	parqview query -f table simple.parquet
package main

import (
	"log"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
)

type User struct {
	ID     int64     `parquet:"id"`
	Name   string    `parquet:"name"`
	Age    int32     `parquet:"age"`
	Active bool      `parquet:"active"`
	Score  float64   `parquet:"score"`
	Email  *string   `parquet:"email,optional"`
	Joined time.Time `parquet:"joined,timestamp(millisecond)"`
	Tags   []string  `parquet:"tags,list"`
}

func ptr(s string) *string { return &s }

func write[T any](name string, rows []T) {
	f, err := os.Create(name)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		log.Fatal(err)
	}
	if err := w.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Generated %s with %d rows", name, len(rows))
}

func main() {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []User{
		{ID: 1, Name: "alice", Age: 30, Active: true, Score: 95.5, Email: ptr("alice@example.com"), Joined: day, Tags: []string{"admin"}},
		{ID: 2, Name: "bob", Age: 25, Active: false, Score: 82.3, Joined: day.AddDate(0, 1, 0)},
		{ID: 3, Name: "charlie", Age: 35, Active: true, Score: 88.7, Email: ptr("charlie@example.com"), Joined: day.AddDate(0, 2, 0), Tags: []string{"ops", "oncall"}},
		{ID: 4, Name: "diana", Age: 28, Active: true, Score: 91.2, Joined: day.AddDate(0, 3, 0)},
		{ID: 5, Name: "eve", Age: 42, Active: false, Score: 76.8, Email: ptr("eve@example.com"), Joined: day.AddDate(0, 4, 0)},
	}
	write("simple.parquet", users)
}
