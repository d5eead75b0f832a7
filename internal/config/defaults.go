package config

const (
	defaultStateDir          = "/var/lib/platter"
	defaultLogDir            = "/var/log/platter"
	defaultMountBase         = "/mnt"
	defaultPoolMount         = "/srv/pool"
	defaultFstabPath         = "/etc/fstab"
	defaultSnapraidConfig    = "/etc/snapraid.conf"
	defaultSambaSharesConfig = "/etc/samba/platter-shares.conf"

	defaultShareGroup = "users"
	defaultShareMode  = "individual"

	defaultSnapraidBinary = "snapraid"
	defaultScrubPercent   = 8
	defaultScrubAgeDays   = 10

	defaultMergerfsBinary  = "mergerfs"
	defaultMergerfsOptions = "defaults,allow_other,use_ino,cache.files=partial,dropcacheonclose=true,category.create=mfs,minfreespace=4G,fsname=platter-pool"

	defaultArrayBinary = "nmdctl"
	defaultArrayDevice = "/dev/nmd"

	defaultCommandTimeout          = 600
	defaultSyncTimeout             = 86400
	defaultScrubTimeout            = 21600
	defaultCheckTimeout            = 86400
	defaultProgressEstimateSeconds = 600

	defaultSyncCron  = "0 3 * * 1"
	defaultScrubCron = "0 4 * * 4"

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// Default returns a Config populated with repository defaults.
func Default() *Config {
	return &Config{
		Paths: Paths{
			StateDir:          defaultStateDir,
			LogDir:            defaultLogDir,
			MountBase:         defaultMountBase,
			PoolMount:         defaultPoolMount,
			FstabPath:         defaultFstabPath,
			SnapraidConfig:    defaultSnapraidConfig,
			SambaSharesConfig: defaultSambaSharesConfig,
		},
		Pool: Pool{
			ShareGroup: defaultShareGroup,
			ShareMode:  defaultShareMode,
		},
		Snapraid: Snapraid{
			Binary:       defaultSnapraidBinary,
			ScrubPercent: defaultScrubPercent,
			ScrubAgeDays: defaultScrubAgeDays,
		},
		Mergerfs: Mergerfs{
			Binary:  defaultMergerfsBinary,
			Options: defaultMergerfsOptions,
		},
		Array: Array{
			Binary: defaultArrayBinary,
			Device: defaultArrayDevice,
		},
		Operations: Operations{
			CommandTimeout:          defaultCommandTimeout,
			SyncTimeout:             defaultSyncTimeout,
			ScrubTimeout:            defaultScrubTimeout,
			CheckTimeout:            defaultCheckTimeout,
			ProgressEstimateSeconds: defaultProgressEstimateSeconds,
		},
		Schedule: Schedule{
			Enabled:   false,
			SyncCron:  defaultSyncCron,
			ScrubCron: defaultScrubCron,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
