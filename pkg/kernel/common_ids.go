package kernel

// UserID identifies a student or admin account.
type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

// DriveID identifies a company recruitment drive.
type DriveID string

func NewDriveID(id string) DriveID { return DriveID(id) }
func (d DriveID) String() string   { return string(d) }
func (d DriveID) IsEmpty() bool    { return string(d) == "" }

// CampaignID identifies a bulk messaging campaign.
type CampaignID string

func NewCampaignID(id string) CampaignID { return CampaignID(id) }
func (c CampaignID) String() string      { return string(c) }
func (c CampaignID) IsEmpty() bool       { return string(c) == "" }
