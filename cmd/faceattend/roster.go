package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/MrCodeEU/faceattend/pkg/ledger"
	"github.com/MrCodeEU/faceattend/pkg/roster"
)

func cmdRoster(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("subcommand required\nUsage: %s", commands["roster"].Usage)
	}

	repo := newRepository(cfg)
	switch args[0] {
	case "list":
		students, err := repo.List()
		if err != nil {
			return err
		}
		printRoster(os.Stdout, students)
		return nil

	case "add", "update":
		s, err := parseStudent(args[0], args[1:])
		if err != nil {
			return err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
		if args[0] == "add" {
			err = repo.Add(s)
		} else {
			err = repo.Update(s)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Student %d (%s) saved.\n", s.ID, s.Name)
		return nil

	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("student id required\nUsage: faceattend roster remove <id>")
		}
		id, ok := roster.ParseID(args[1])
		if !ok {
			return fmt.Errorf("%w: %s", roster.ErrInvalidID, args[1])
		}
		if err := repo.Remove(id); err != nil {
			return err
		}
		fmt.Printf("Student %d removed. Photo samples in %s are kept.\n", id, cfg.PhotoFolder(id))
		return nil

	default:
		return fmt.Errorf("unknown roster subcommand: %s", args[0])
	}
}

// parseStudent reads the student flags of roster add/update.
func parseStudent(name string, args []string) (roster.Student, error) {
	var s roster.Student
	fs := flag.NewFlagSet("roster "+name, flag.ContinueOnError)
	fs.IntVar(&s.ID, "id", 0, "Student id")
	fs.StringVar(&s.Name, "name", "", "Full name")
	fs.StringVar(&s.Division, "division", "", "Division")
	fs.StringVar(&s.Gender, "gender", "", "Gender")
	fs.StringVar(&s.DOB, "dob", "", "Date of birth")
	fs.StringVar(&s.Email, "email", "", "Email address")
	fs.StringVar(&s.Phone, "phone", "", "Phone number")
	fs.StringVar(&s.Address, "address", "", "Address")
	fs.StringVar(&s.Teacher, "teacher", "", "Class teacher")
	if err := fs.Parse(args); err != nil {
		return s, err
	}

	if s.ID <= 0 {
		return s, roster.ErrInvalidID
	}
	if s.Name == "" {
		return s, fmt.Errorf("name is required")
	}
	return s, nil
}

func printRoster(w io.Writer, students []roster.Student) {
	if len(students) == 0 {
		fmt.Fprintln(w, "No students found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tDivision\tTeacher\tPhotoSample")
	for _, s := range students {
		photo := "No"
		if s.PhotoSample {
			photo = "Yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", strconv.Itoa(s.ID), s.Name, s.Division, s.Teacher, photo)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d student(s)\n", len(students))
}

func cmdSheet(args []string) error {
	records, err := newLedger(cfg).List()
	if err != nil {
		return err
	}
	printSheet(os.Stdout, records)
	return nil
}

func printSheet(w io.Writer, records []ledger.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No attendance records found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tDate\tPeriod\tTime")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.IdentityID, r.Name, r.Date, r.Period, r.Time)
	}
	_ = tw.Flush()
}
