package dashboards

import (
	"context"
	"math"

	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

// BackupsView is the backup-jobs dashboard.
type BackupsView struct {
	Devices       []BackupDevice `json:"devices"`
	SuccessRate7d int            `json:"successRate7d"`
	Alerts        []Alert        `json:"alerts"`
}

// BackupDevice is one backup appliance or server.
type BackupDevice struct {
	Name   string        `json:"name"`
	Type   string        `json:"type"` // veeam, acronis, qnap, other
	Status status.Status `json:"status"`
	Jobs   []BackupJob   `json:"jobs"`
	Disks  []BackupDisk  `json:"disks"`
}

// BackupJob is one job sensor with its last observed run.
type BackupJob struct {
	Name       string        `json:"name"`
	LastStatus status.Status `json:"lastStatus"`
	LastRun    string        `json:"lastRun"`
}

// BackupDisk is a logical-disk sensor with derived capacity.
type BackupDisk struct {
	Name    string   `json:"name"`
	FreeGB  *float64 `json:"freeGB"`
	TotalGB *float64 `json:"totalGB"`
}

// veeamMetaSensorName is the aggregate status sensor Veeam installs; it is
// not a job and stays off the per-job list.
const veeamMetaSensorName = "Veeam Backup Job Status"

// BuildBackups assembles the backups dashboard for a tenant.
func (s *Service) BuildBackups(ctx context.Context, probe string) (*BackupsView, error) {
	cacheKey := "backups:" + probe
	if cached, ok := s.cachedView(cacheKey); ok {
		if view, ok := cached.(*BackupsView); ok {
			return view, nil
		}
	}

	sensors, err := s.domainSensors(ctx, probe, classify.Backups)
	if err != nil {
		return nil, err
	}

	devices := groupByDevice(sensors)

	// One fan-out for the whole dashboard: logical-disk sensors (free bytes)
	// and Veeam job sensors (last-run channel).
	var channelIDs []int
	for devName, devSensors := range devices {
		devType := backupDeviceType(devName)
		for _, sensor := range devSensors {
			if isLogicalDiskSensor(sensor) {
				channelIDs = append(channelIDs, sensor.ObjID)
			} else if devType == "veeam" && isBackupJobSensor(sensor) {
				channelIDs = append(channelIDs, sensor.ObjID)
			}
		}
	}
	channelsByID := s.fetchChannelsBatch(ctx, channelIDs)

	view := &BackupsView{
		Devices: make([]BackupDevice, 0, len(devices)),
		Alerts:  collectAlerts(sensors),
	}

	veeamJobs, veeamJobsOK := 0, 0

	for _, name := range sortedDeviceNames(devices) {
		devSensors := devices[name]
		device := BackupDevice{
			Name:   name,
			Type:   backupDeviceType(name),
			Status: status.Worst(rawCodes(devSensors)),
		}

		for _, sensor := range devSensors {
			switch {
			case isLogicalDiskSensor(sensor):
				device.Disks = append(device.Disks, buildBackupDisk(sensor, channelsByID[sensor.ObjID]))
			case isBackupJobSensor(sensor):
				job := BackupJob{
					Name:       sensor.Name,
					LastStatus: status.FromCode(sensor.StatusRaw.Int()),
				}
				if device.Type == "veeam" {
					job.LastRun = s.lastJobRunFor(sensor, channelsByID[sensor.ObjID])
					veeamJobs++
					if sensor.StatusRaw.Int() == 3 {
						veeamJobsOK++
					}
				}
				device.Jobs = append(device.Jobs, job)
			}
		}

		view.Devices = append(view.Devices, device)
	}

	if veeamJobs > 0 {
		view.SuccessRate7d = int(math.Round(100 * float64(veeamJobsOK) / float64(veeamJobs)))
	}

	s.storeView(cacheKey, view)
	return view, nil
}

// lastJobRunFor reads the "Last Job Run" channel and remembers it in the
// side table. When the channel fetch failed this cycle, the last remembered
// value is shown instead of going blank: stale beats empty here.
func (s *Service) lastJobRunFor(sensor prtg.Sensor, channels []prtg.Channel) string {
	if ch, ok := findChannel(channels, "last job run"); ok && ch.LastValue != "" {
		if s.lastJobRun != nil {
			s.lastJobRun.Remember(sensor.ObjID, ch.LastValue)
		}
		return ch.LastValue
	}
	if s.lastJobRun != nil {
		return s.lastJobRun.Last(sensor.ObjID)
	}
	return ""
}

func buildBackupDisk(sensor prtg.Sensor, channels []prtg.Channel) BackupDisk {
	disk := BackupDisk{Name: sensor.Name}

	if ch, ok := findChannel(channels, "free bytes"); ok {
		disk.FreeGB = bytesToGB(ch.LastValueRaw)
	}

	// Back-compute the total from the formatted free percentage on the
	// sensor row: total = free / (free% / 100).
	if disk.FreeGB != nil {
		if pct := parsePercent(sensor.LastValue); pct != nil && *pct > 0 {
			total := round1(*disk.FreeGB * 100 / *pct)
			disk.TotalGB = &total
		}
	}
	return disk
}

func backupDeviceType(deviceName string) string {
	switch {
	case containsFold(deviceName, "veeam"):
		return "veeam"
	case containsFold(deviceName, "acronis"):
		return "acronis"
	case containsFold(deviceName, "qnap"):
		return "qnap"
	default:
		return "other"
	}
}

func isLogicalDiskSensor(s prtg.Sensor) bool {
	return containsFold(s.Name, "disk") || containsFold(s.Name, "disco")
}

// isBackupJobSensor keeps everything that is not the Veeam meta-sensor and
// not a disk. Job sensors are whatever the operator pointed at the device.
func isBackupJobSensor(s prtg.Sensor) bool {
	return s.Name != veeamMetaSensorName && !isLogicalDiskSensor(s)
}
