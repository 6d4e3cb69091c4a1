package command

import (
	"strconv"
)

// optionalString is a flag.Value that remembers whether it was set.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(value string) error {
	o.value = value
	o.set = true

	return nil
}

func (o *optionalString) ptr() *string {
	if !o.set {
		return nil
	}

	value := o.value

	return &value
}

type optionalInt struct {
	value int
	set   bool
}

func (o *optionalInt) String() string {
	if !o.set {
		return ""
	}

	return strconv.Itoa(o.value)
}

func (o *optionalInt) Set(value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return err
	}

	o.value = parsed
	o.set = true

	return nil
}

func (o *optionalInt) ptr() *int {
	if !o.set {
		return nil
	}

	value := o.value

	return &value
}

type optionalFloat struct {
	value float64
	set   bool
}

func (o *optionalFloat) String() string {
	if !o.set {
		return ""
	}

	return strconv.FormatFloat(o.value, 'g', -1, 64)
}

func (o *optionalFloat) Set(value string) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}

	o.value = parsed
	o.set = true

	return nil
}

func (o *optionalFloat) ptr() *float64 {
	if !o.set {
		return nil
	}

	value := o.value

	return &value
}
