// Package schema parses the XML format description embedded at the end of a
// LAGER file.
//
// The document written by the logger looks like:
//
//	<keg>
//	  <formats>
//	    <format uuid="5f3e..." version="BEERR01" key="imu">
//	      <item name="accel_x" type="float32" size="4" offset="0"/>
//	      <item name="counter" type="uint16_t" size="2" offset="4"/>
//	    </format>
//	  </formats>
//	  <metadata>
//	    <meta key="vehicle" value="rover-2"/>
//	  </metadata>
//	</keg>
//
// Every element named format at any depth declares one record type, and each
// of its child elements declares one field. Fields are laid out back to back in
// declaration order; the offset attribute is recorded but not used to place
// values.
package schema
