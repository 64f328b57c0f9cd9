// Command seed-patients writes a queue file of fake patients for dry runs
// against a test portal.
package main

import (
	"flag"
	"log"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/queue"
)

func main() {
	var (
		output = flag.String("output", "input/patients.json", "queue file to write")
		count  = flag.Int("count", 10, "number of fake patients")
		zips   = flag.String("zips", "19403,19401,18102,19107", "comma-separated candidate target zip codes")
		seed   = flag.Uint64("seed", 0, "random seed (0 uses the clock)")
	)
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *seed != 0 {
		gofakeit.Seed(*seed)
	}
	pool := strings.Split(*zips, ",")

	patients := make([]patient.Patient, 0, *count)
	for i := 0; i < *count; i++ {
		patients = append(patients, fakePatient(pool))
	}

	if err := queue.New(*output).Save(patients); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	log.Printf("wrote %d fake patients to %s", len(patients), *output)
}

func fakePatient(zipPool []string) patient.Patient {
	dob := gofakeit.DateRange(
		time.Date(1935, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1956, 12, 31, 0, 0, 0, 0, time.UTC))

	// Between one and three nearby regions, in pool order.
	targets := make([]string, 0, 3)
	start := gofakeit.Number(0, len(zipPool)-1)
	n := gofakeit.Number(1, 3)
	for i := 0; i < n; i++ {
		targets = append(targets, strings.TrimSpace(zipPool[(start+i)%len(zipPool)]))
	}

	days := []int{}
	for d := 0; d < 7; d++ {
		if gofakeit.Bool() {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = []int{int(time.Saturday)}
	}

	hours := patient.ParseHours("any")
	switch gofakeit.Number(0, 2) {
	case 1:
		hours = patient.ParseHours("10AM")
	case 2:
		hours = patient.ParseHours("1PM, 4PM")
	}

	return patient.Patient{
		SignupTimestamp: time.Now().Format("1/2/2006 15:04"),
		FirstName:       gofakeit.FirstName(),
		LastName:        gofakeit.LastName(),
		DOB:             dob.Format("01022006"),
		Phone:           patient.CleanPhone(gofakeit.Phone()),
		Email:           gofakeit.Email(),
		Address:         gofakeit.Street(),
		City:            gofakeit.City(),
		State:           "PA",
		Zip:             gofakeit.Zip(),
		TargetZips:      targets,
		DaysOfWeek:      days,
		HoursOfDay:      hours,
	}
}
