package environment

// TimeOfDay buckets the clock into the three simulation periods.
type TimeOfDay string

const (
	TimeDay     TimeOfDay = "day"
	TimeEvening TimeOfDay = "evening"
	TimeNight   TimeOfDay = "night"
)

// Weather enumerates the simulated weather states.
type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
	WeatherStormy Weather = "stormy"
	WeatherSnowy  Weather = "snowy"
	WeatherFoggy  Weather = "foggy"
)

// AllWeather lists every weather state, used for random transitions.
var AllWeather = []Weather{
	WeatherSunny, WeatherCloudy, WeatherRainy,
	WeatherStormy, WeatherSnowy, WeatherFoggy,
}

// Conditions is a value snapshot of the ambient environment. Temperature
// is in degrees Celsius, humidity in percent and light level in lux.
// Copies are handed out freely; holders can never observe later updates.
type Conditions struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	LightLevel  float64   `json:"light_level"`
	Motion      bool      `json:"motion"`
	TimeOfDay   TimeOfDay `json:"time_of_day"`
	Occupancy   bool      `json:"occupancy"`
	Weather     Weather   `json:"weather"`
}

// DefaultConditions returns the neutral indoor baseline used before the
// first simulator tick and by devices that never receive updates.
func DefaultConditions() Conditions {
	return Conditions{
		Temperature: 21.0,
		Humidity:    45.0,
		LightLevel:  300.0,
		Motion:      false,
		TimeOfDay:   TimeDay,
		Occupancy:   true,
		Weather:     WeatherSunny,
	}
}

func validTimeOfDay(v TimeOfDay) bool {
	switch v {
	case TimeDay, TimeEvening, TimeNight:
		return true
	}
	return false
}

func validWeather(v Weather) bool {
	for _, w := range AllWeather {
		if v == w {
			return true
		}
	}
	return false
}

// bucketFor maps an hour of day onto a simulation period. Daytime runs
// 07:00-16:59, evening 17:00-21:59, night covers the rest.
func bucketFor(hour int) TimeOfDay {
	switch {
	case hour >= 7 && hour < 17:
		return TimeDay
	case hour >= 17 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}
