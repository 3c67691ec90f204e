package vaccination

import (
	"time"

	"github.com/trezcool/schoolhealth/core/listing"
)

var CampaignSorts = map[string]listing.Comparator[Campaign]{
	"title":      listing.ByString(func(c Campaign) string { return c.Title }),
	"start_date": listing.ByTime(func(c Campaign) time.Time { return c.StartDate.Time }),
	"status":     listing.ByString(func(c Campaign) string { return c.Status }),
}

var VaccineSorts = map[string]listing.Comparator[Vaccine]{
	"name": listing.ByString(func(v Vaccine) string { return v.Name }),
}
