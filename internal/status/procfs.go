package status

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// tcpListen is the socket state code for LISTEN in /proc/net/tcp.
const tcpListen = "0A"

var errNoField = errors.New("field not found")

// listening reports whether a socket in the /proc/net/tcp style table at
// path is listening on port.
func listening(path string, port int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	want := fmt.Sprintf(":%04X", port)
	sc := bufio.NewScanner(f)
	sc.Scan() // header
	for sc.Scan() {
		// sl local_address rem_address st ...
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		if strings.HasSuffix(fields[1], want) && fields[3] == tcpListen {
			return true, nil
		}
	}
	return false, sc.Err()
}

// readUptime parses the first figure of /proc/uptime.
func readUptime(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%s: empty", path)
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// readMeminfo returns MemTotal and MemAvailable in kB.
func readMeminfo(path string) (total, avail uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var haveTotal, haveAvail bool
	sc := bufio.NewScanner(f)
	for sc.Scan() && !(haveTotal && haveAvail) {
		name, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		switch name {
		case "MemTotal":
			total, err = strconv.ParseUint(fields[0], 10, 64)
			haveTotal = err == nil
		case "MemAvailable":
			avail, err = strconv.ParseUint(fields[0], 10, 64)
			haveAvail = err == nil
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	if !haveTotal {
		return 0, 0, fmt.Errorf("%s: MemTotal: %w", path, errNoField)
	}
	return total, avail, nil
}
